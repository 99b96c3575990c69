// Package snapshot implements the canonical on-the-wire encoding of a full
// ledger snapshot: a line-oriented `accountId:points` text file with a
// version header. Parsing is deliberately lenient (unknown headers, blank and
// malformed lines are skipped) so that older unversioned files remain
// readable; writing always produces the v1 form.
package snapshot

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Header marks the canonical v1 encoding. Files without it (the original
// deployment wrote bare `id:points` lines) still parse.
const Header = "# cloudpoints/v1"

// Filename is the attachment name under which the snapshot is stored.
const Filename = "cloud_points.txt"

// Parse decodes snapshot content into an account -> points map.
// Malformed lines and negative balances are dropped rather than failing the
// whole snapshot; a committed ledger never contains negatives.
func Parse(content []byte) map[string]int64 {
	balances := make(map[string]int64)
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		accountID := strings.TrimSpace(parts[0])
		points, err := strconv.ParseInt(strings.TrimSpace(parts[1]), 10, 64)
		if err != nil || accountID == "" || points < 0 {
			continue
		}
		balances[accountID] = points
	}
	return balances
}

// Format encodes balances into the canonical v1 form. Entries are sorted by
// account ID so repeated writes of the same state are byte-identical.
func Format(balances map[string]int64) []byte {
	accountIDs := make([]string, 0, len(balances))
	for accountID := range balances {
		accountIDs = append(accountIDs, accountID)
	}
	sort.Strings(accountIDs)

	var b strings.Builder
	b.WriteString(Header)
	b.WriteString("\n")
	for _, accountID := range accountIDs {
		fmt.Fprintf(&b, "%s:%d\n", accountID, balances[accountID])
	}
	return []byte(b.String())
}
