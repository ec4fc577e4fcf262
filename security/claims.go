package security

import (
	"encoding/json"

	"github.com/golang-jwt/jwt/v5"
)

// ClaimSet is the decoded payload of a bearer token.
//
// Permission data may arrive in any of three encodings: a "roles" array of
// bare names, an "authorities" array of ROLE_-prefixed names, or a single
// "role" string. Any combination may be present; see Resolver for precedence.
type ClaimSet struct {
	jwt.RegisteredClaims
	TokenType   string      `json:"type,omitempty"`
	Roles       StringList  `json:"roles,omitempty"`
	Authorities StringList  `json:"authorities,omitempty"`
	Role        LooseString `json:"role,omitempty"`
}

// StringList decodes a JSON array of strings without failing on unexpected
// shapes. A bare string becomes a one-element list, non-string elements are
// skipped and any other type decodes to nil.
type StringList []string

// UnmarshalJSON implements json.Unmarshaler
func (l *StringList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		*l = nil
		return nil
	}

	switch v := raw.(type) {
	case string:
		*l = StringList{v}
	case []any:
		out := make(StringList, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		*l = out
	default:
		*l = nil
	}
	return nil
}

// LooseString decodes a JSON string and ignores any other type
type LooseString string

// UnmarshalJSON implements json.Unmarshaler
func (s *LooseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = LooseString(v)
	return nil
}
