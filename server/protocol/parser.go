package protocol

import "strings"

// ParseCommandLine splits a command line into verb plus arguments. Parsing
// is verb-sensitive: SET/UPDATE values must be wrapped in double quotes,
// JSON.SET/JSON.APPEND values in single quotes (content taken literally, no
// escape processing), and every other verb splits on whitespace outside
// quotes. The tokenizer never fails — malformed input surfaces as a short
// argument list that the handler rejects by arity.
func ParseCommandLine(line string) []string {
	if line == "" {
		return nil
	}

	cmdEnd := strings.IndexByte(line, ' ')
	verb := line
	if cmdEnd >= 0 {
		verb = line[:cmdEnd]
	}
	args := []string{verb}
	verbUpper := strings.ToUpper(verb)

	var requiredQuote byte
	switch verbUpper {
	case "SET", "UPDATE":
		requiredQuote = '"'
	case "JSON.SET", "JSON.APPEND":
		requiredQuote = '\''
	}

	if requiredQuote != 0 {
		return parseQuotedValue(line, cmdEnd, requiredQuote, args)
	}
	if cmdEnd < 0 {
		return args
	}

	args = append(args, splitQuoteAware(line[cmdEnd+1:])...)

	// Canonicalize the clause keywords so the handlers match them exactly.
	if verbUpper == "JSON.UPDATE" || verbUpper == "JSON.GET" {
		for i := 1; i < len(args); i++ {
			switch strings.ToLower(args[i]) {
			case "where":
				args[i] = "WHERE"
			case "set":
				args[i] = "SET"
			}
		}
	}
	return args
}

// parseQuotedValue recovers `VERB key <q>value<q> [EX n]` where the value may
// contain arbitrary whitespace and the other quote character. On any shape
// mismatch the partial argument list is returned as-is for the handler's
// arity check.
func parseQuotedValue(line string, cmdEnd int, quote byte, args []string) []string {
	if cmdEnd < 0 {
		return args
	}
	keyStart := cmdEnd + 1
	divider := strings.IndexByte(line[keyStart:], ' ')
	if divider < 0 {
		return append(args, line[keyStart:])
	}
	divider += keyStart
	key := line[keyStart:divider]

	valueStart := -1
	for i := divider; i < len(line); i++ {
		if line[i] != ' ' && line[i] != '\t' {
			valueStart = i
			break
		}
	}

	exPos := strings.LastIndex(line, " EX ")
	if exPos >= 0 && exPos > divider {
		if valueStart < 0 || line[valueStart] != quote || exPos < valueStart || line[exPos-1] != quote {
			return args
		}
		return append(args, key, line[valueStart+1:exPos-1], "EX", line[exPos+4:])
	}

	if valueStart < 0 || line[valueStart] != quote || line[len(line)-1] != quote || valueStart+1 > len(line)-1 {
		return args
	}
	return append(args, key, line[valueStart+1:len(line)-1])
}

// splitQuoteAware splits on runs of whitespace outside single or double
// quotes. An opening quote ends the argument in progress and starts a new
// one that runs, whitespace included, to the matching closing quote; the
// quotes themselves are stripped, and characters right after the closing
// quote continue that same argument.
func splitQuoteAware(rest string) []string {
	var args []string
	var current strings.Builder
	var quoteType byte

	flush := func() {
		if current.Len() > 0 {
			args = append(args, current.String())
			current.Reset()
		}
	}

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case quoteType == 0 && (c == '\'' || c == '"'):
			flush()
			quoteType = c
		case c == quoteType:
			quoteType = 0
		case quoteType == 0 && (c == ' ' || c == '\t' || c == '\n' || c == '\r'):
			flush()
		default:
			current.WriteByte(c)
		}
	}
	flush()
	return args
}
