package discovery

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// StaticResolver serves discovery records from an in-memory domain map.
// It backs local development and tests, and is the loaded form of a records
// file; production deployments substitute a real record transport.
type StaticResolver struct {
	records map[string]*Record
}

var _ Resolver = (*StaticResolver)(nil)

// NewStaticResolver builds a resolver over the given domain -> record map.
func NewStaticResolver(records map[string]*Record) *StaticResolver {
	m := make(map[string]*Record, len(records))
	for domain, record := range records {
		m[domain] = record
	}
	return &StaticResolver{records: m}
}

// NewFileResolver loads a YAML records file of the form:
//
//	example.com:
//	  version: 1
//	  idp: https://idp.example.com
//	  mode: allowlist-user
func NewFileResolver(path string) (*StaticResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "[NewFileResolver] read records file")
	}

	var records map[string]*Record
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "[NewFileResolver] parse records file")
	}
	return NewStaticResolver(records), nil
}

func (r *StaticResolver) Resolve(_ context.Context, domain string) (*Record, error) {
	record, ok := r.records[domain]
	if !ok {
		return nil, nil
	}
	return record, nil
}
