package model

// Direction is the side of a trade signal.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// StrategyVerdict is the outcome of evaluating one trigger rule against one
// candle. Reason and Details are populated only when the rule triggered.
type StrategyVerdict struct {
	StrategyID string             `json:"strategy_id"`
	Triggered  bool               `json:"triggered"`
	Reason     string             `json:"reason,omitempty"`
	Details    map[string]float64 `json:"details,omitempty"`
}

// Signal is emitted for a candle where at least one strategy rule triggered.
// Triggers carries every evaluated rule's verdict (triggered or not) so a
// signal is fully traceable after the fact.
type Signal struct {
	Symbol      string            `json:"symbol"`
	TS          int64             `json:"ts"` // Unix milliseconds of the triggering candle
	CandleIndex int               `json:"candle_index"`
	Direction   Direction         `json:"direction"`
	Price       float64           `json:"price"` // close of the triggering candle
	Triggers    []StrategyVerdict `json:"triggers"`
}

// TriggeredIDs returns the ids of the rules that actually fired.
func (s *Signal) TriggeredIDs() []string {
	var ids []string
	for _, v := range s.Triggers {
		if v.Triggered {
			ids = append(ids, v.StrategyID)
		}
	}
	return ids
}

// FirstTrigger returns the first triggered verdict, or a zero verdict if none
// fired (which never happens for a Signal built by the evaluator).
func (s *Signal) FirstTrigger() StrategyVerdict {
	for _, v := range s.Triggers {
		if v.Triggered {
			return v
		}
	}
	return StrategyVerdict{}
}
