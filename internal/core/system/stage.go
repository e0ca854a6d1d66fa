package system

import "fmt"

// Stage is one fixed phase of a frame. The three parallel stages each own a
// bucket of tasks; StageThreadLocal is always last and runs its tasks one by
// one on the calling goroutine.
type Stage int

const (
	StageBegin       Stage = iota // 0: input, time, event intake
	StageLogic                    // 1: game logic
	StageRender                   // 2: snapshot / presentation
	StageThreadLocal              // 3: strictly sequential work
)

var stageNames = [...]string{
	StageBegin:       "begin",
	StageLogic:       "logic",
	StageRender:      "render",
	StageThreadLocal: "thread_local",
}

// FrameOrder lists every stage in the order a frame runs them.
func FrameOrder() []Stage {
	return []Stage{StageBegin, StageLogic, StageRender, StageThreadLocal}
}

// ParallelStages lists the stages backed by a task bucket.
func ParallelStages() []Stage {
	return []Stage{StageBegin, StageLogic, StageRender}
}

func (s Stage) String() string {
	if s.valid() {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// Parallel reports whether s is backed by a task bucket.
func (s Stage) Parallel() bool {
	return s >= StageBegin && s < StageThreadLocal
}

func (s Stage) valid() bool {
	return s >= StageBegin && s <= StageThreadLocal
}

// ParseStage is the inverse of String.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.valid() {
		return nil, fmt.Errorf("marshal %s: invalid stage", s)
	}
	return []byte(stageNames[s]), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	v, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
