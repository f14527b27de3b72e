package model

// Framework identifies a backend that supplies entities.
type Framework string

const (
	RelatedEvents     Framework = "relatedEvents"
	RelatedDimensions Framework = "relatedDimensions"
	RelatedMetrics    Framework = "relatedMetrics"
	// Identity looks up raw entity metadata. It does not search for related
	// entities and never evicts.
	Identity Framework = "identity"
)

// SearchFrameworks returns the fixed set of relevance-search frameworks that
// are dispatched for each new search context.
func SearchFrameworks() []Framework {
	return []Framework{RelatedEvents, RelatedDimensions, RelatedMetrics}
}

func (f Framework) String() string {
	return string(f)
}
