// Package model defines the data types shared by the root-cause entity cache
// and its query dispatchers.
package model

import (
	"encoding/json"
	"fmt"
)

// StaleScore is the score given to an entity that a framework no longer
// reports but that is kept because it is pinned by the user's selection.
const StaleScore = -1

// Entity is a single node of the root-cause entity graph. A fetch result for
// a URN always replaces the whole record.
type Entity struct {
	// URN identifies the entity. Its prefix determines the entity type
	// namespace.
	URN string `json:"urn"`
	// Type is the entity type reported by the framework, e.g. "metric".
	Type string `json:"type"`
	// Label is a human readable name.
	Label string `json:"label,omitempty"`
	// Score is the relevance assigned by the originating framework. Scores
	// are only comparable with each other, except StaleScore.
	Score float64 `json:"score"`
	// Related lists URNs of entities this entity was derived from.
	Related []string `json:"relatedUrns,omitempty"`
	// Attributes holds framework specific fields.
	Attributes map[string][]string `json:"attributes,omitempty"`
	// Extra holds any other top-level fields of the record, undecoded.
	Extra map[string]json.RawMessage `json:"-"`
}

// entityFields has the fields of Entity without its JSON methods.
type entityFields Entity

var entityKeys = []string{"urn", "type", "label", "score", "relatedUrns", "attributes"}

// UnmarshalJSON decodes the known fields of an entity record and keeps the
// rest in Extra.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var fields entityFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var extra map[string]json.RawMessage
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	for _, k := range entityKeys {
		delete(extra, k)
	}
	fields.Extra = nil
	if len(extra) != 0 {
		fields.Extra = extra
	}
	*e = Entity(fields)
	return nil
}

// MarshalJSON encodes the entity with its Extra fields. Known fields take
// precedence over Extra fields of the same name.
func (e Entity) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(entityFields(e))
	if err != nil || len(e.Extra) == 0 {
		return data, err
	}
	out := make(map[string]json.RawMessage, len(e.Extra)+len(entityKeys))
	for k, v := range e.Extra {
		out[k] = v
	}
	var known map[string]json.RawMessage
	if err = json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		out[k] = v
	}
	return json.Marshal(out)
}

// Stale reports whether the entity was demoted because its framework no
// longer reports it.
func (e Entity) Stale() bool {
	return e.Score == StaleScore
}

// Entities maps entity URN to Entity. Every key equals the URN of its value.
type Entities map[string]Entity

// EntitiesFromList builds Entities from a decoded list. A nil or empty list
// gives an empty, non-nil map. If a URN appears more than once the last
// record wins.
func EntitiesFromList(list []Entity) Entities {
	out := make(Entities, len(list))
	for _, e := range list {
		out[e.URN] = e
	}
	return out
}

// DecodeEntities decodes a JSON array of entities. An empty body or a JSON
// null is zero entities, not an error.
func DecodeEntities(data []byte) ([]Entity, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var list []Entity
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("cannot decode entities: %w", err)
	}
	for i := range list {
		if list[i].URN == "" {
			return nil, fmt.Errorf("cannot decode entities: entity %d has no urn", i)
		}
	}
	return list, nil
}

// Clone returns a shallow copy of the map. Entity values are copied, but their
// Related, Attributes and Extra fields are shared and must not be modified.
func (es Entities) Clone() Entities {
	out := make(Entities, len(es))
	for u, e := range es {
		out[u] = e
	}
	return out
}

// URNs returns the keys of the map.
func (es Entities) URNs() []string {
	urns := make([]string, 0, len(es))
	for u := range es {
		urns = append(urns, u)
	}
	return urns
}
