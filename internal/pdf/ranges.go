package pdf

import (
	"strconv"
	"strings"
)

// parsePageGroups parses a range expression like "1-3,5,8-10" into 1-based
// page groups, one per token, in token order. Tokens pointing outside
// [1, total] or with an inverted span are silently dropped; groups are not
// coalesced or deduplicated, so "2,2,1-2" yields three groups.
func parsePageGroups(expr string, total int) []pageGroup {
	parts := strings.Split(expr, ",")
	groups := make([]pageGroup, 0, len(parts))

	for _, part := range parts {
		token := strings.TrimSpace(part)
		if token == "" {
			continue
		}

		if idx := strings.Index(token, "-"); idx >= 0 {
			start, err1 := strconv.Atoi(strings.TrimSpace(token[:idx]))
			end, err2 := strconv.Atoi(strings.TrimSpace(token[idx+1:]))
			if err1 != nil || err2 != nil {
				continue
			}
			if start < 1 || end > total || start > end {
				continue
			}
			groups = append(groups, pageGroup{start: start, end: end})
			continue
		}

		page, err := strconv.Atoi(token)
		if err != nil || page < 1 || page > total {
			continue
		}
		groups = append(groups, pageGroup{start: page, end: page})
	}

	return groups
}
