package schema

// JSONName converts a snake_case field name to the lowerCamelCase name
// protoc assigns as the default json_name.
func JSONName(s string) string {
	if s == "" {
		return s
	}
	out := make([]byte, 0, len(s))
	upperNext := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '_' {
			upperNext = true
			continue
		}
		if upperNext && c >= 'a' && c <= 'z' {
			c = c - 'a' + 'A'
		}
		upperNext = false
		out = append(out, c)
	}
	return string(out)
}
