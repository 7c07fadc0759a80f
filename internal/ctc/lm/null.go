package lm

// NullModel is the zero-everywhere LM adapter: every score and finish
// contribution is 0, making it equivalent to decoding with LMWeight set to
// 0 under any other adapter.
type NullModel struct{}

// NewNullModel returns a NullModel. It carries no state, so the zero value
// is equally usable; the constructor exists for symmetry with the other
// adapters.
func NewNullModel() *NullModel {
	return &NullModel{}
}

func (NullModel) Start() State {
	return nil
}

func (NullModel) Score(state State, token int32) (State, float64, error) {
	return state, 0, nil
}

func (NullModel) Finish(state State) (State, float64, error) {
	return state, 0, nil
}
