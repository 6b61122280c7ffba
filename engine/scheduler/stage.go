package scheduler

// StageKind names a pipeline stage in progress reports.
type StageKind string

// StepResult reports whether a stage has more items.
type StepResult int

const (
	// StepContinue means the stage has more items.
	StepContinue StepResult = iota
	// StepDone means the stage is exhausted.
	StepDone
)

// Stage is a resumable unit of work processed one item per step.
type Stage interface {
	// Kind names the stage.
	Kind() StageKind

	// Step processes the next item.
	//
	// Returns:
	//   - StepResult: StepDone once no items remain
	//   - error: a fatal error that fails the whole run
	Step() (StepResult, error)

	// Progress reports the items processed so far and the item count.
	Progress() (current, total int)
}

// countedStage runs a function over the indices 0..total-1.
type countedStage struct {
	kind   StageKind
	total  int
	cursor int
	fn     func(i int) error
}

var _ Stage = &countedStage{}

// NewStage creates a stage that calls fn once per index in order.
//
// Parameters:
//   - kind: the stage name
//   - total: the item count
//   - fn: the per-item work
//
// Returns:
//   - Stage: the new stage
func NewStage(kind StageKind, total int, fn func(i int) error) Stage {
	return &countedStage{kind: kind, total: max(total, 0), fn: fn}
}

func (s *countedStage) Kind() StageKind {
	return s.kind
}

func (s *countedStage) Progress() (int, int) {
	return s.cursor, s.total
}

func (s *countedStage) Step() (StepResult, error) {
	if s.cursor >= s.total {
		return StepDone, nil
	}
	i := s.cursor
	s.cursor++
	if err := s.fn(i); err != nil {
		return StepDone, err
	}
	if s.cursor >= s.total {
		return StepDone, nil
	}
	return StepContinue, nil
}

// funcStage delegates stepping to a function, for stages whose item count is not known up front.
type funcStage struct {
	kind     StageKind
	step     func() (bool, error)
	progress func() (int, int)
}

var _ Stage = &funcStage{}

// NewFuncStage creates a stage driven by step, which reports true once exhausted.
//
// Parameters:
//   - kind: the stage name
//   - step: processes one item and reports whether the stage is exhausted
//   - progress: reports (current, total)
//
// Returns:
//   - Stage: the new stage
func NewFuncStage(kind StageKind, step func() (bool, error), progress func() (int, int)) Stage {
	return &funcStage{kind: kind, step: step, progress: progress}
}

func (s *funcStage) Kind() StageKind {
	return s.kind
}

func (s *funcStage) Progress() (int, int) {
	return s.progress()
}

func (s *funcStage) Step() (StepResult, error) {
	done, err := s.step()
	if err != nil || done {
		return StepDone, err
	}
	return StepContinue, nil
}
