// Package discovery resolves an end-user email domain to the user's chosen
// Identity Provider and projects the published record into a usable IdP
// configuration. How records are published and transported is a resolver
// concern; this package only interprets them.
package discovery

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Resolver looks up the discovery record for an email domain.
// A nil record with a nil error means the domain has no published record.
type Resolver interface {
	Resolve(ctx context.Context, domain string) (*Record, error)
}

// ExtractDomain returns the domain part of an email address.
func ExtractDomain(email string) (string, error) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", errors.Errorf("[ExtractDomain] invalid email address %q", email)
	}
	return strings.ToLower(email[at+1:]), nil
}

// Discover finds the IdP for the given email address. It returns nil (and no
// error) when the domain has no discovery record: an unknown domain is an
// unsupported login method, not a failure.
func Discover(ctx context.Context, email string, resolver Resolver) (*IdPConfig, error) {
	domain, err := ExtractDomain(email)
	if err != nil {
		return nil, errors.Wrap(err, "[Discover] extract domain")
	}

	record, err := resolver.Resolve(ctx, domain)
	if err != nil {
		return nil, errors.Wrap(err, "[Discover] resolver.Resolve")
	}
	if record == nil {
		return nil, nil
	}

	return &IdPConfig{
		IdPURL: strings.TrimSuffix(record.IdP, "/"),
		Mode:   record.Mode,
		Record: record,
	}, nil
}
