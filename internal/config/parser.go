package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	gailboterrors "github.com/gailbot/gailbot/pkg/errors"
)

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// DecodeFile reads a YAML or JSON document from path into out. document
// names what is being read in errors.
func DecodeFile(document, path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return gailboterrors.NewParseError(document, path, 0, err)
	}
	return Decode(document, path, data, out)
}

// Decode parses data into out. JSON documents are accepted since they are
// valid YAML. document and path are only used to label errors.
func Decode(document, path string, data []byte, out any) error {
	if err := yaml.Unmarshal(data, out); err != nil {
		return gailboterrors.NewParseError(document, path, extractLine(err), err)
	}
	return nil
}

func extractLine(err error) int {
	if err == nil {
		return 0
	}

	matches := yamlLineRegex.FindStringSubmatch(err.Error())
	if len(matches) != 2 {
		return 0
	}

	var line int
	_, scanErr := fmt.Sscanf(matches[1], "%d", &line)
	if scanErr != nil {
		return 0
	}

	return line
}
