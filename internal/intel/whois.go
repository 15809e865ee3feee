package intel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Whois returns the raw whois text for an IP address or ASN. AS
// records live at a path keyed by the AS number; network-block records
// are resolved through the whois path index.
func (o *Orchestrator) Whois(query string) (string, error) {
	path, err := o.resolveWhoisPath(query)
	if err != nil {
		return "", err
	}
	raw, rerr := os.ReadFile(path)
	if rerr != nil {
		return "", errf(CodeWhoisNotFound, "no whois record for %q", strings.TrimSpace(query))
	}
	return string(raw), nil
}

// WhoisExists probes whether a whois record exists without reading its
// content. Its verdict matches what Whois would report.
func (o *Orchestrator) WhoisExists(query string) (bool, error) {
	_, err := o.resolveWhoisPath(query)
	if err != nil {
		if e, ok := err.(*Error); ok && e.Code == CodeWhoisNotFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// WhoisPath returns the resolved record path for callers that need the
// path rather than its content.
func (o *Orchestrator) WhoisPath(query string) (string, error) {
	return o.resolveWhoisPath(query)
}

// resolveWhoisPath normalizes the query, resolves the record path and
// verifies the file exists. Both a missing index entry and a missing
// file report not-found.
func (o *Orchestrator) resolveWhoisPath(query string) (string, error) {
	snap, terr := o.current()
	if terr != nil {
		return "", terr
	}
	q := strings.ToLower(strings.TrimSpace(query))

	kind, key, asn := classifyQuery(q)
	var path string
	switch kind {
	case queryASN:
		path = filepath.Join(o.cfg.WhoisDir, "as", fmt.Sprintf("as%d.txt", asn))
	case queryIP:
		rel, ok := snap.whoisPath.Lookup(key)
		if !ok {
			return "", errf(CodeWhoisNotFound, "no whois record for %q", q)
		}
		path = filepath.Join(o.cfg.WhoisDir, filepath.FromSlash(rel))
	default:
		return "", errf(CodeInvalidIPOrASN, "%q is neither a valid IP address nor an ASN", q)
	}

	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return "", errf(CodeWhoisNotFound, "no whois record for %q", q)
	}
	return path, nil
}
