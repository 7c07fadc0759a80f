package lm

// StartFunc, ScoreFunc, and FinishFunc mirror the three Model operations as
// plain functions, letting a caller wire up a scorer without implementing
// the Model interface directly.
type StartFunc func() State
type ScoreFunc func(state State, token int32) (State, float64, error)
type FinishFunc func(state State) (State, float64, error)

// CallbackModel forwards every Model call to caller-supplied functions. It
// owns no state beyond the functions themselves; if none is supplied for a
// given method, that method behaves like NullModel for that operation.
type CallbackModel struct {
	StartFn  StartFunc
	ScoreFn  ScoreFunc
	FinishFn FinishFunc
}

// NewCallbackModel returns a CallbackModel delegating to the given functions.
// A nil function falls back to the null-adapter behavior for that method.
func NewCallbackModel(start StartFunc, score ScoreFunc, finish FinishFunc) *CallbackModel {
	return &CallbackModel{StartFn: start, ScoreFn: score, FinishFn: finish}
}

func (c *CallbackModel) Start() State {
	if c.StartFn == nil {
		return nil
	}
	return c.StartFn()
}

func (c *CallbackModel) Score(state State, token int32) (State, float64, error) {
	if c.ScoreFn == nil {
		return state, 0, nil
	}
	return c.ScoreFn(state, token)
}

func (c *CallbackModel) Finish(state State) (State, float64, error) {
	if c.FinishFn == nil {
		return state, 0, nil
	}
	return c.FinishFn(state)
}
