package undo

import (
	"encoding/json"
	"fmt"
	"time"
)

// Envelope is the stored form of an action: its kind tag, payload and record time
type Envelope struct {
	Kind       Kind            `json:"kind"`
	RecordedAt time.Time       `json:"recorded_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Seal wraps an action for storage
func Seal(a Action, at time.Time) (Envelope, error) {
	payload, err := json.Marshal(a)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Kind: a.Kind(), RecordedAt: at, Payload: payload}, nil
}

// Open decodes the payload back into its concrete action
func (e Envelope) Open() (Action, error) {
	var (
		a   Action
		err error
	)
	switch e.Kind {
	case KindAdd:
		a, err = decode[Add](e.Payload)
	case KindDelete:
		a, err = decode[Delete](e.Payload)
	case KindEdit:
		a, err = decode[Edit](e.Payload)
	case KindPaid:
		a, err = decode[Paid](e.Payload)
	case KindFundUpdate:
		a, err = decode[FundUpdate](e.Payload)
	case KindFundApply:
		a, err = decode[FundApply](e.Payload)
	default:
		return nil, fmt.Errorf("unknown undo kind %q", e.Kind)
	}
	return a, err
}

func decode[T Action](data []byte) (Action, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}
