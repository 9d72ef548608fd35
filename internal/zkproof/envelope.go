package zkproof

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var ErrMalformedEnvelope = errors.New("malformed proof envelope")

// Envelope carries a serialized Groth16 proof with the public inputs it was made for.
type Envelope struct {
	Proof        []byte   `cbor:"1,keyasint"`
	PublicInputs [][]byte `cbor:"2,keyasint"` // commitment, minter (field encoded)
	Timestamp    int64    `cbor:"3,keyasint"` // unix millis at proving time
}

// Encode serializes the envelope.
func (e *Envelope) Encode() ([]byte, error) {
	return cbor.Marshal(e)
}

// DecodeEnvelope parses an envelope produced by Encode and checks its structure.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var e Envelope
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if err := VerifyEnvelopeStructure(&e); err != nil {
		return nil, err
	}
	return &e, nil
}

// VerifyEnvelopeStructure performs the cheap checks done before any pairing work.
func VerifyEnvelopeStructure(e *Envelope) error {
	switch {
	case e == nil:
		return fmt.Errorf("%w: missing", ErrMalformedEnvelope)
	case len(e.Proof) == 0:
		return fmt.Errorf("%w: empty proof", ErrMalformedEnvelope)
	case len(e.PublicInputs) == 0:
		return fmt.Errorf("%w: no public inputs", ErrMalformedEnvelope)
	case e.Timestamp <= 0:
		return fmt.Errorf("%w: timestamp must be positive", ErrMalformedEnvelope)
	}
	return nil
}

func (e *Envelope) String() string {
	return fmt.Sprintf("Proof(%d bytes, %d inputs, ts: %d)", len(e.Proof), len(e.PublicInputs), e.Timestamp)
}
