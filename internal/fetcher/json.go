package fetcher

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"
)

// DecodeJSONObject decodes a single JSON value from a reader.
func DecodeJSONObject[T any](r io.Reader) (*T, error) {
	var obj T
	if err := json.NewDecoder(r).Decode(&obj); err != nil {
		if err == io.EOF {
			return nil, eris.Wrap(err, "json: empty body")
		}
		return nil, eris.Wrap(err, "json: decode object")
	}
	return &obj, nil
}
