package repository

import (
	"encoding/json"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiSurvey/internal/store"
)

// toDoc converts a model into a store document via its JSON form.
func toDoc(v any) (store.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", v, err)
	}
	var doc store.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %T doc: %w", v, err)
	}
	return doc, nil
}

// fromDoc decodes a store document into out.
func fromDoc(doc store.Document, out any) error {
	delete(doc, "_id")
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal doc: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %T: %w", out, err)
	}
	return nil
}
