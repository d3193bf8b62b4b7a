package httpapi

import "net/http"

// discoveryVersion is the trusted-server.json document's schema version.
const discoveryVersion = "1.0"

// discoveryDocument is the body served at /.well-known/trusted-server.json:
// deliberately just version + jwks, nothing else — a caller discovering
// this endpoint only needs to know which keys are currently trusted for
// request signing, not the gateway's route table or feature flags.
type discoveryDocument struct {
	Version string       `json:"version"`
	JWKS    jwksDocument `json:"jwks"`
}

type jwksDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
}

// handleDiscovery serves the static discovery document. Request signing
// key rotation/verification (the admin endpoints the document's JWKS would
// normally be populated by) is out of scope here, so the keys list is
// always empty; the document's shape still matches what a consumer expects
// to parse.
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, discoveryDocument{
		Version: discoveryVersion,
		JWKS:    jwksDocument{Keys: []jwk{}},
	})
}
