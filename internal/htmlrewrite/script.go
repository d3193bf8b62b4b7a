package htmlrewrite

import "github.com/sovrn-labs/trustedserver/internal/integrations"

// scriptDispatcher finds the first registered script rewriter whose
// MatchesScript predicate accepts a <script> element's attributes.
// Registration order (the registry's sorted integration-ID order) breaks
// ties between rewriters that would otherwise both match.
type scriptDispatcher struct {
	rewriters []integrations.ScriptRewriter
}

func newScriptDispatcher(rewriters []integrations.ScriptRewriter) *scriptDispatcher {
	return &scriptDispatcher{rewriters: rewriters}
}

func (d *scriptDispatcher) match(attrs map[string]string) *integrations.ScriptRewriter {
	for i := range d.rewriters {
		if d.rewriters[i].MatchesScript(attrs) {
			return &d.rewriters[i]
		}
	}
	return nil
}
