package htmlrewrite

import "strings"

// urlPatterns holds the three origin-host spellings a document might embed
// an absolute reference in (https, http, protocol-relative) and the two
// matching request-host replacements, generating variants on demand rather
// than precomputing every combination.
type urlPatterns struct {
	originHost    string
	requestHost   string
	requestScheme string
}

func (p urlPatterns) httpsOrigin() string               { return "https://" + p.originHost }
func (p urlPatterns) httpOrigin() string                { return "http://" + p.originHost }
func (p urlPatterns) protocolRelativeOrigin() string     { return "//" + p.originHost }
func (p urlPatterns) replacementURL() string             { return p.requestScheme + "://" + p.requestHost }
func (p urlPatterns) protocolRelativeReplacement() string { return "//" + p.requestHost }

// rewriteURLValue applies the core origin->request substitution to a single
// attribute value. It returns the rewritten value and true if anything
// changed; the original value is returned unmodified when the origin host
// never appears in it (the common case, and the rewriter's fixed-point
// invariant for documents that don't reference the origin at all).
func (p urlPatterns) rewriteURLValue(value string) (string, bool) {
	if !strings.Contains(value, p.originHost) {
		return value, false
	}

	rewritten := strings.NewReplacer(
		p.httpsOrigin(), p.replacementURL(),
		p.httpOrigin(), p.replacementURL(),
		p.protocolRelativeOrigin(), p.protocolRelativeReplacement(),
	).Replace(value)

	if strings.HasPrefix(rewritten, p.originHost) {
		suffix := rewritten[len(p.originHost):]
		boundaryOK := suffix == "" || suffix[0] == '/' || suffix[0] == '?' || suffix[0] == '#'
		if boundaryOK {
			rewritten = p.requestHost + suffix
		}
	}

	return rewritten, rewritten != value
}

// rewriteSrcsetValue applies the core substitution plus a bare-host
// replacement across the whole srcset value (candidates are comma/space
// separated, so a single global replace is equivalent to rewriting each
// candidate independently and cheaper).
func (p urlPatterns) rewriteSrcsetValue(value string) string {
	return strings.NewReplacer(
		p.httpsOrigin(), p.replacementURL(),
		p.httpOrigin(), p.replacementURL(),
		p.protocolRelativeOrigin(), p.protocolRelativeReplacement(),
		p.originHost, p.requestHost,
	).Replace(value)
}

// rewriteImageSrcsetValue applies the core substitution (without the
// bare-host variant) across the whole imagesrcset value.
func (p urlPatterns) rewriteImageSrcsetValue(value string) string {
	return strings.NewReplacer(
		p.httpsOrigin(), p.replacementURL(),
		p.httpOrigin(), p.replacementURL(),
		p.protocolRelativeOrigin(), p.protocolRelativeReplacement(),
	).Replace(value)
}
