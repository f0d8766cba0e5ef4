package storage

// Key layout. Every key is a prefix byte, then 0x00-separated components.
// Semantic-convention identifiers are dotted names ("metric.cpu.usage"),
// never containing NUL, so the separator is unambiguous.
//
//	c <kind> <table>                         catalog entry (JSON definition)
//	n <table> <id>                           node row (snappy-compressed JSON)
//	r <rel> <fromTable> <fromID> <toID>      relationship row (snappy-compressed JSON)
//	i <rel> <toID> <fromTable> <fromID>      reverse-traversal index (empty value)

const keySep = 0x00

const (
	prefixCatalog = 'c'
	prefixNode    = 'n'
	prefixRel     = 'r'
	prefixRevIdx  = 'i'
)

const (
	kindNode = "NODE"
	kindRel  = "REL"
)

func buildKey(prefix byte, parts ...string) []byte {
	n := 1
	for _, p := range parts {
		n += 1 + len(p)
	}
	key := make([]byte, 0, n)
	key = append(key, prefix)
	for _, p := range parts {
		key = append(key, keySep)
		key = append(key, p...)
	}
	return key
}

// buildPrefix is buildKey with a trailing separator, for iterator prefixes.
func buildPrefix(prefix byte, parts ...string) []byte {
	key := buildKey(prefix, parts...)
	return append(key, keySep)
}

func catalogKey(kind, table string) []byte {
	return buildKey(prefixCatalog, kind, table)
}

func nodeKey(table, id string) []byte {
	return buildKey(prefixNode, table, id)
}

func nodePrefix(table string) []byte {
	return buildPrefix(prefixNode, table)
}

func relKey(rel, fromTable, fromID, toID string) []byte {
	return buildKey(prefixRel, rel, fromTable, fromID, toID)
}

func relFromPrefix(rel, fromTable, fromID string) []byte {
	return buildPrefix(prefixRel, rel, fromTable, fromID)
}

func relPrefix(rel string) []byte {
	return buildPrefix(prefixRel, rel)
}

func revIdxKey(rel, toID, fromTable, fromID string) []byte {
	return buildKey(prefixRevIdx, rel, toID, fromTable, fromID)
}

func revIdxPrefix(rel, toID string) []byte {
	return buildPrefix(prefixRevIdx, rel, toID)
}

// splitKey breaks a key back into its components, dropping the prefix byte
// and its leading separator.
func splitKey(key []byte) []string {
	if len(key) < 2 {
		return nil
	}
	body := key[2:]
	var parts []string
	start := 0
	for i := 0; i < len(body); i++ {
		if body[i] == keySep {
			parts = append(parts, string(body[start:i]))
			start = i + 1
		}
	}
	parts = append(parts, string(body[start:]))
	return parts
}
