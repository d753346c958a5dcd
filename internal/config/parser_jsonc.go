package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// assignFunc decodes one settings value onto cfg.
type assignFunc func(cfg *Config, raw json.RawMessage) error

// settingsKeys maps lower-cased keys to their field. Matching ignores case so
// PascalCase files written for older builds load too.
var settingsKeys = map[string]assignFunc{
	"xoffset":     assign(func(cfg *Config, v int) { cfg.XOffset = v }),
	"yoffset":     assign(func(cfg *Config, v int) { cfg.YOffset = v }),
	"triggermode": assign(func(cfg *Config, v string) { cfg.TriggerMode = ParseTriggerMode(v) }),
	"imageset":    assign(func(cfg *Config, v string) { cfg.ImageSet = strings.TrimSpace(v) }),
	"scalefactor": assign(func(cfg *Config, v float64) { cfg.ScaleFactor = v }),

	"imagesdir":      assign(func(cfg *Config, v string) { cfg.ImagesDir = strings.TrimSpace(v) }),
	"resetdelayms":   assign(func(cfg *Config, v int) { cfg.ResetDelayMS = v }),
	"soundthreshold": assign(func(cfg *Config, v float64) { cfg.SoundThreshold = v }),
	"soundsink":      assign(func(cfg *Config, v string) { cfg.SoundSink = strings.TrimSpace(v) }),
}

// assign builds an assignFunc for a value of type T. A null value keeps the
// base setting.
func assign[T any](set func(*Config, T)) assignFunc {
	return func(cfg *Config, raw json.RawMessage) error {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil
		}
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return err
		}
		set(cfg, v)
		return nil
	}
}

// parseJSONC layers one flat settings object over base.
func parseJSONC(content string, base Config) (Config, []Warning, error) {
	cleaned, err := stripJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}
	if strings.TrimSpace(cleaned) == "" {
		validated, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validated, nil
	}

	dec := json.NewDecoder(strings.NewReader(cleaned))
	if err := expectDelim(dec, '{'); err != nil {
		return Config{}, nil, locate(cleaned, dec, err)
	}

	cfg := base
	warnings := make([]Warning, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Config{}, nil, locate(cleaned, dec, err)
		}
		key, _ := tok.(string)
		line := lineAt(cleaned, dec.InputOffset())

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Config{}, nil, locate(cleaned, dec, err)
		}

		set, ok := settingsKeys[strings.ToLower(key)]
		if !ok {
			warnings = append(warnings, Warning{Line: line, Message: fmt.Sprintf("unknown settings key %q ignored", key)})
			continue
		}
		if err := set(&cfg, raw); err != nil {
			return Config{}, nil, fmt.Errorf("line %d: %s: %w", line, key, err)
		}
	}
	if err := expectDelim(dec, '}'); err != nil {
		return Config{}, nil, locate(cleaned, dec, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return Config{}, nil, fmt.Errorf("line %d: multiple JSON values are not allowed", lineAt(cleaned, dec.InputOffset()))
	}

	validated, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, append(warnings, validated...), nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if got, ok := tok.(json.Delim); !ok || got != want {
		return fmt.Errorf("settings must be a single JSON object, found %v", tok)
	}
	return nil
}

// locate prefixes err with the line and column it refers to.
func locate(content string, dec *json.Decoder, err error) error {
	offset := dec.InputOffset()
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		offset = syntaxErr.Offset
	}
	line, col := position(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// stripJSONC blanks comments and trailing commas. Byte offsets and line breaks
// are preserved so decoder positions still point into the original file.
func stripJSONC(content string) (string, error) {
	out := []byte(content)
	comma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		switch {
		case ch == '"':
			i = stringEnd(out, i)
			comma = -1
		case ch == '/' && i+1 < len(out) && out[i+1] == '/':
			for ; i < len(out) && out[i] != '\n' && out[i] != '\r'; i++ {
				out[i] = ' '
			}
		case ch == '/' && i+1 < len(out) && out[i+1] == '*':
			end := bytes.Index(out[i+2:], []byte("*/"))
			if end < 0 {
				line, _ := position(content, int64(i))
				return "", fmt.Errorf("line %d: unterminated block comment", line)
			}
			stop := i + 2 + end + 2
			for j := i; j < stop; j++ {
				if out[j] != '\n' && out[j] != '\r' {
					out[j] = ' '
				}
			}
			i = stop - 1
		case ch == ',':
			comma = i
		case ch == '}' || ch == ']':
			if comma >= 0 {
				out[comma] = ' '
			}
			comma = -1
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
		default:
			comma = -1
		}
	}
	return string(out), nil
}

// stringEnd returns the index of the quote closing the string opened at start.
func stringEnd(b []byte, start int) int {
	for j := start + 1; j < len(b); j++ {
		switch b[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return len(b) - 1
}

func lineAt(content string, offset int64) int {
	line, _ := position(content, offset)
	return line
}

// position returns the line and column of the byte at offset.
func position(content string, offset int64) (int, int) {
	limit := min(max(int(offset), 0), len(content))
	line, col := 1, 1
	for _, ch := range []byte(content[:limit]) {
		if ch == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
