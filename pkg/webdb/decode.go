package webdb

import "encoding/json"

// Decode converts a stored record (as returned by GetData or GetAllData)
// into T through its JSON form.
func Decode[T any](record any) (T, error) {
	var out T
	raw, err := json.Marshal(record)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(raw, &out)
	return out, err
}

// DecodeAll converts every record with Decode.
func DecodeAll[T any](records []any) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		v, err := Decode[T](r)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
