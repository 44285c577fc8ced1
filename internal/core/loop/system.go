package loop

//go:generate mockgen -source=system.go -destination=mocks/system.go -package=mocks

// System is host logic driven by the Runner once per phase.
// Can be used for gameplay code that sends and reacts to messages.
type System interface {
	Name() string
	Priority() Priority

	FixedUpdate(fixedDeltaTime float64) error
	Update(deltaTime float64) error
	LateUpdate(deltaTime float64) error
}

// Priority defines execution order within a phase, higher runs first.
type Priority uint16

const (
	PriorityLowest  Priority = 200
	PriorityLow     Priority = 500
	PriorityNormal  Priority = 600
	PriorityHigh    Priority = 1000
	PriorityHighest Priority = 1300
)

// Phase identifies a step of the frame.
type Phase uint8

const (
	PhaseFixedUpdate Phase = iota
	PhaseUpdate
	PhaseLateUpdate
	PhaseEndOfFrame
)

func (p Phase) String() string {
	switch p {
	case PhaseFixedUpdate:
		return "fixed_update"
	case PhaseUpdate:
		return "update"
	case PhaseLateUpdate:
		return "late_update"
	case PhaseEndOfFrame:
		return "end_of_frame"
	default:
		return "unknown"
	}
}

// Funcs adapts plain functions to System. Nil phases are skipped.
type Funcs struct {
	ID    string
	Order Priority

	OnFixedUpdate func(fixedDeltaTime float64) error
	OnUpdate      func(deltaTime float64) error
	OnLateUpdate  func(deltaTime float64) error
}

var _ System = (*Funcs)(nil)

func (f *Funcs) Name() string       { return f.ID }
func (f *Funcs) Priority() Priority { return f.Order }

func (f *Funcs) FixedUpdate(fixedDeltaTime float64) error {
	if f.OnFixedUpdate == nil {
		return nil
	}
	return f.OnFixedUpdate(fixedDeltaTime)
}

func (f *Funcs) Update(deltaTime float64) error {
	if f.OnUpdate == nil {
		return nil
	}
	return f.OnUpdate(deltaTime)
}

func (f *Funcs) LateUpdate(deltaTime float64) error {
	if f.OnLateUpdate == nil {
		return nil
	}
	return f.OnLateUpdate(deltaTime)
}
