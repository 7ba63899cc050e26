package service

import "strings"

// sanitizeJSON приводит сырой ответ модели к виду, пригодному для
// json.Unmarshal: убирает markdown-ограждения и дописывает недостающие
// закрывающие скобки, если ответ оборвался на лимите токенов.
func sanitizeJSON(s string) string {
	return balanceBrackets(stripJSONFences(s))
}

// stripJSONFences убирает markdown-ограждения, если модель всё же их добавила.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// balanceBrackets дописывает закрывающие фигурные и квадратные скобки,
// которых не хватает до баланса. Скобки внутри строковых литералов не
// учитываются. Лишние закрывающие скобки не трогаем - такой JSON всё
// равно не спасти дописыванием.
func balanceBrackets(s string) string {
	if s == "" {
		return s
	}

	var curly, square int
	inString := false
	escaped := false

	for _, char := range s {
		if char == '"' && !escaped {
			inString = !inString
		}

		if !inString {
			switch char {
			case '{':
				curly++
			case '}':
				curly--
			case '[':
				square++
			case ']':
				square--
			}
		}

		if char == '\\' && !escaped {
			escaped = true
		} else {
			escaped = false
		}
	}

	if square > 0 {
		s += strings.Repeat("]", square)
	}
	if curly > 0 {
		s += strings.Repeat("}", curly)
	}
	return s
}
