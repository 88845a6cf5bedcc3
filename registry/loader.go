package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"
)

// wellKnownPrefix marks imports served by the built-in definitions
const wellKnownPrefix = "google/protobuf/"

// loader parses .proto files found under a list of root directories
type loader struct {
	protoDirectories []string
	parsedProtoBody  map[string]*protoparserparser.Proto // full path -> parsed file
	importPaths      map[string]string                   // full path -> path as imported
}

func newLoader(dirs []string) *loader {
	if len(dirs) == 0 {
		dirs = []string{"."}
	}
	return &loader{
		protoDirectories: dirs,
		parsedProtoBody:  make(map[string]*protoparserparser.Proto),
		importPaths:      make(map[string]string),
	}
}

// getAllProtoInfo uses DFS to fetch all the files from all directories passed and stores relevant proto files.
// Files come back in visiting order, the requested file first.
func (l *loader) getAllProtoInfo(protoFile string) ([]string, error) {
	visited := make(map[string]struct{}) // to make sure we don't end up in a loop
	result := make([]string, 0)

	var dfs func(protoFile string) error
	dfs = func(protoFile string) error {
		if _, ok := visited[protoFile]; ok {
			return nil
		}
		visited[protoFile] = struct{}{}
		result = append(result, protoFile)
		parsedBody, ok := l.parsedProtoBody[protoFile]
		if !ok {
			protoBytes, err := os.ReadFile(protoFile)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			parsedBody, err = protoparser.Parse(bytes.NewBuffer(protoBytes), protoparser.WithFilename(protoFile))
			if err != nil {
				return err
			}
			l.parsedProtoBody[protoFile] = parsedBody
		}

		for _, body := range parsedBody.ProtoBody {
			switch b := body.(type) {
			case *protoparserparser.Import: // resolve relation for each imports
				importPath := strings.Trim(b.Location, `"`)
				if strings.HasPrefix(importPath, wellKnownPrefix) {
					continue
				}
				fullImportPath, err := l.findIfProtoExists(importPath)
				if err != nil {
					return err
				}
				if err = dfs(fullImportPath); err != nil {
					return fmt.Errorf("import %s: %w", importPath, err)
				}
			}
		}
		return nil
	}
	// run dfs on the input proto path
	protoPath, err := l.findIfProtoExists(protoFile)
	if err != nil {
		return nil, err
	}
	if err := dfs(protoPath); err != nil {
		return nil, err
	}
	return result, nil
}

func (l *loader) findIfProtoExists(protoPath string) (string, error) {
	var (
		fullPath      string
		fullProtoPath string
		err           error
	)
	protoPath = strings.Trim(protoPath, `"`)
	if !strings.HasSuffix(protoPath, ".proto") {
		return "", fmt.Errorf("is not a .proto file: %s", protoPath)
	}
	for _, dir := range l.protoDirectories {
		fullPath = filepath.Join(dir, filepath.FromSlash(protoPath))
		// Check if the path exists
		_, err = os.Stat(fullPath)
		if err == nil {
			fullProtoPath = fullPath
			break
		}
	}
	if fullProtoPath == "" {
		return "", fmt.Errorf("path does not exist: %s: %w", protoPath, err)
	}
	l.importPaths[fullProtoPath] = protoPath
	return fullProtoPath, nil
}

// relative returns the name a file was imported by
func (l *loader) relative(fullPath string) string {
	if name, ok := l.importPaths[fullPath]; ok {
		return name
	}
	return filepath.ToSlash(fullPath)
}
