package ingest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"alertflow/internal/domain"
)

// maxBatchPayloads bounds one batch request so a single body cannot monopolize the pipeline.
const maxBatchPayloads = 1000

// decodedPayloads is one decoded request body.
type decodedPayloads struct {
	payloads []domain.Payload
	batch    bool
}

// decodePayloads auto-detects a single alert object or a batch array.
// Params: raw JSON bytes with one object or an array of objects.
// Returns: payloads in body order, batch flag, or decode error.
func decodePayloads(raw []byte) (decodedPayloads, error) {
	body := bytes.TrimSpace(raw)
	if len(body) == 0 {
		return decodedPayloads{}, errors.New("empty payload")
	}

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	if body[0] == '[' {
		var payloads []domain.Payload
		if err := decoder.Decode(&payloads); err != nil {
			return decodedPayloads{}, fmt.Errorf("decode alert batch: %w", err)
		}
		if len(payloads) == 0 {
			return decodedPayloads{}, errors.New("alert batch must contain at least one payload")
		}
		if len(payloads) > maxBatchPayloads {
			return decodedPayloads{}, fmt.Errorf("alert batch exceeds %d payloads", maxBatchPayloads)
		}
		if err := ensureJSONEOF(decoder); err != nil {
			return decodedPayloads{}, err
		}
		for index := range payloads {
			if payloads[index] == nil {
				payloads[index] = domain.Payload{}
			}
		}
		return decodedPayloads{payloads: payloads, batch: true}, nil
	}

	var payload domain.Payload
	if err := decoder.Decode(&payload); err != nil {
		return decodedPayloads{}, fmt.Errorf("decode alert payload: %w", err)
	}
	if err := ensureJSONEOF(decoder); err != nil {
		return decodedPayloads{}, err
	}
	if payload == nil {
		payload = domain.Payload{}
	}
	return decodedPayloads{payloads: []domain.Payload{payload}}, nil
}

// ensureJSONEOF rejects trailing tokens after a decoded JSON payload.
// Params: decoder positioned after primary decode.
// Returns: nil on EOF or error on trailing tokens.
func ensureJSONEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("decode trailing json: %w", err)
	}
	return errors.New("unexpected trailing json tokens")
}
