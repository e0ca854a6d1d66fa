package persist

import (
	"context"
	"errors"
	"time"

	"github.com/l1jgo/scheduler/internal/core/ecs"
	coresys "github.com/l1jgo/scheduler/internal/core/system"
	"go.uber.org/zap"
)

const flushTimeout = 5 * time.Second

var (
	errNoWriter = errors.New("stats writer resource not present")
	errNoStats  = errors.New("frame stats resource not present")
)

// StatsFlushSystem samples the last completed frame's timings once per
// frame and writes them in batches. Thread-local.
type StatsFlushSystem struct {
	writer StatsWriter
	stats  *coresys.FrameStats
	every  int
	buf    []FrameRecord
	last   uint64
	log    *zap.Logger
}

func (s *StatsFlushSystem) Run(_ *ecs.World) {
	if s.stats.Frame == 0 || s.stats.Frame == s.last {
		return
	}
	s.last = s.stats.Frame
	s.buf = append(s.buf, FrameRecord{
		Frame:       s.stats.Frame,
		Begin:       s.stats.Stage(coresys.StageBegin),
		Logic:       s.stats.Stage(coresys.StageLogic),
		Render:      s.stats.Stage(coresys.StageRender),
		ThreadLocal: s.stats.Stage(coresys.StageThreadLocal),
		Total:       s.stats.Total,
		RecordedAt:  time.Now(),
	})
	if len(s.buf) < s.every {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := s.Flush(ctx); err != nil {
		s.log.Error("frame stats flush failed", zap.Int("records", len(s.buf)), zap.Error(err))
		s.buf = s.buf[:0]
	}
}

// Flush writes whatever is buffered. On error the buffer is kept.
func (s *StatsFlushSystem) Flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	if err := s.writer.InsertBatch(ctx, s.buf); err != nil {
		return err
	}
	s.buf = s.buf[:0]
	return nil
}

// StatsFlushDesc builds a StatsFlushSystem from the world's StatsWriter and
// *coresys.FrameStats resources. Both must be present at build time.
type StatsFlushDesc struct {
	every int
	log   *zap.Logger
	built *StatsFlushSystem
}

func NewStatsFlushDesc(every int, log *zap.Logger) *StatsFlushDesc {
	if every < 1 {
		every = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &StatsFlushDesc{every: every, log: log}
}

func (d *StatsFlushDesc) Build(w *ecs.World) (coresys.ThreadLocal, error) {
	writer, ok := ecs.Resource[StatsWriter](w)
	if !ok {
		return nil, errNoWriter
	}
	stats, ok := ecs.Resource[*coresys.FrameStats](w)
	if !ok {
		return nil, errNoStats
	}
	d.built = &StatsFlushSystem{
		writer: writer,
		stats:  stats,
		every:  d.every,
		buf:    make([]FrameRecord, 0, d.every),
		log:    d.log,
	}
	return d.built, nil
}

// System returns the system produced by Build, or nil before Build.
func (d *StatsFlushDesc) System() *StatsFlushSystem {
	return d.built
}
