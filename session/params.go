package session

// placeholders returns the names (without sigil) of the named parameters
// ":name", "@name" and "$name" which |sql| declares. String literals, quoted
// identifiers and comments are skipped. Anonymous "?" and numbered "?NNN"
// parameters are not named, and are not returned.
func placeholders(sql string) map[string]struct{} {
	var out = make(map[string]struct{})

	for i := 0; i < len(sql); {
		switch c := sql[i]; c {
		case '\'', '"', '`':
			i = skipQuoted(sql, i, c)
		case '[':
			i = skipQuoted(sql, i, ']')
		case '-':
			if i+1 < len(sql) && sql[i+1] == '-' {
				for i < len(sql) && sql[i] != '\n' {
					i++
				}
			} else {
				i++
			}
		case '/':
			if i+1 < len(sql) && sql[i+1] == '*' {
				i += 2
				for i+1 < len(sql) && !(sql[i] == '*' && sql[i+1] == '/') {
					i++
				}
				i += 2
			} else {
				i++
			}
		case ':', '@', '$':
			var j = i + 1
			for j < len(sql) && isNameByte(sql[j]) {
				j++
			}
			if j != i+1 {
				out[sql[i+1:j]] = struct{}{}
			}
			i = j
		default:
			i++
		}
	}
	return out
}

// skipQuoted returns the index following the quoted run beginning at |i|
// and terminated by |end|. A doubled terminator is an escaped one.
func skipQuoted(sql string, i int, end byte) int {
	for i++; i < len(sql); i++ {
		if sql[i] != end {
			continue
		} else if end != ']' && i+1 < len(sql) && sql[i+1] == end {
			i++ // Escaped.
		} else {
			return i + 1
		}
	}
	return i
}

func isNameByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9') ||
		c >= 0x80 // SQLite permits any non-ASCII byte in identifiers.
}
