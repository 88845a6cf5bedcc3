package registry

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/anirudhraja/protocodec/schema"
)

// Registry allows us to store the schema of the protobuf messages. We look this up when we need to parse or marshal a message.
// Loading takes the write lock; lookups only read, so a loaded Registry can be
// shared by concurrent encoders and decoders.
type Registry struct {
	// ProtoDirectories are searched, in order, for .proto files and their imports.
	ProtoDirectories []string

	mu       sync.RWMutex
	repo     *schema.ProtoRepo
	messages map[string]*schema.Message // fully qualified name -> message
	enums    map[string]*schema.Enum    // fully qualified name -> enum
	services map[string]*schema.Service // fully qualified name -> service
}

// NewRegistry creates a registry holding the well-known types. protoDirs are
// the roots used to resolve .proto file names and imports.
func NewRegistry(protoDirs ...string) *Registry {
	r := &Registry{
		ProtoDirectories: protoDirs,
		repo:             &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)},
		messages:         make(map[string]*schema.Message),
		enums:            make(map[string]*schema.Enum),
		services:         make(map[string]*schema.Service),
	}
	for _, f := range builtinFiles() {
		r.repo.ProtoFiles[f.Name] = f
		_ = r.registerNames(f)
	}
	return r
}

// LoadSchema Given a path it will recursively scan all *proto files inside it and load them.
// Imports are resolved against the path itself and ProtoDirectories.
func (r *Registry) LoadSchema(protoPath string) error {
	// Check if the path exists
	info, err := os.Stat(protoPath)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	// If it's a single file, process it directly
	if !info.IsDir() {
		if !strings.HasSuffix(protoPath, ".proto") {
			return fmt.Errorf("file %s is not a .proto file", protoPath)
		}
		dir, name := filepath.Split(protoPath)
		return r.loadFiles([]string{name}, append([]string{dir}, r.ProtoDirectories...))
	}

	// If it's a directory, walk through it recursively
	var names []string
	err = filepath.WalkDir(protoPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip directories and non-proto files
		if d.IsDir() || !strings.HasSuffix(path, ".proto") {
			return nil
		}

		rel, err := filepath.Rel(protoPath, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk directory: %w", err)
	}

	return r.loadFiles(names, append([]string{protoPath}, r.ProtoDirectories...))
}

// LoadSchemaFromFile parses a .proto file, found relative to one of the
// ProtoDirectories, together with everything it imports.
func (r *Registry) LoadSchemaFromFile(protoFile string) error {
	return r.loadFiles([]string{protoFile}, r.ProtoDirectories)
}

func (r *Registry) loadFiles(names []string, dirs []string) error {
	l := newLoader(dirs)
	repo := &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile)}
	for _, name := range names {
		files, err := l.getAllProtoInfo(name)
		if err != nil {
			return fmt.Errorf("failed to load proto file %s: %w", name, err)
		}
		for _, f := range files {
			if _, done := repo.ProtoFiles[f]; done || r.hasFile(l.relative(f)) {
				continue
			}
			protoFile, err := convertProto(l.relative(f), l.parsedProtoBody[f])
			if err != nil {
				return fmt.Errorf("failed to convert proto file %s: %w", f, err)
			}
			repo.ProtoFiles[f] = protoFile
		}
	}
	return r.LoadRepo(repo)
}

// LoadRepo registers every definition of repo, resolves the type names used
// by fields and methods to fully qualified names, and validates the result.
// All problems found are returned together. On error the registry's tables
// are left unchanged, but the definitions in repo may already have been
// rewritten in place: type names resolved, stray packed flags cleared and
// field indexes built. Such a repo should not be loaded again.
func (r *Registry) LoadRepo(repo *schema.ProtoRepo) error {
	if repo == nil {
		return fmt.Errorf("nil proto repo")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	staged := r.clone()
	files := sortedFiles(repo)

	// Pass 1: Register all message and enum names
	var errs error
	for _, protoFile := range files {
		errs = multierr.Append(errs, staged.registerNames(protoFile))
	}
	if errs != nil {
		return errs
	}

	// Pass 2: Build all message and enum definitions
	for _, protoFile := range files {
		errs = multierr.Append(errs, staged.buildDefinitions(protoFile))
	}

	// Pass 3: Build services
	for _, protoFile := range files {
		errs = multierr.Append(errs, staged.buildServices(protoFile))
	}
	if errs != nil {
		return errs
	}

	for _, protoFile := range files {
		staged.repo.ProtoFiles[protoFile.Name] = protoFile
	}
	r.repo, r.messages, r.enums, r.services = staged.repo, staged.messages, staged.enums, staged.services
	return nil
}

// clone copies the symbol tables so a failed load can be discarded
func (r *Registry) clone() *Registry {
	c := &Registry{
		repo:     &schema.ProtoRepo{ProtoFiles: make(map[string]*schema.ProtoFile, len(r.repo.ProtoFiles))},
		messages: make(map[string]*schema.Message, len(r.messages)),
		enums:    make(map[string]*schema.Enum, len(r.enums)),
		services: make(map[string]*schema.Service, len(r.services)),
	}
	for k, v := range r.repo.ProtoFiles {
		c.repo.ProtoFiles[k] = v
	}
	for k, v := range r.messages {
		c.messages[k] = v
	}
	for k, v := range r.enums {
		c.enums[k] = v
	}
	for k, v := range r.services {
		c.services[k] = v
	}
	return c
}

func sortedFiles(repo *schema.ProtoRepo) []*schema.ProtoFile {
	keys := make([]string, 0, len(repo.ProtoFiles))
	for k := range repo.ProtoFiles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	files := make([]*schema.ProtoFile, 0, len(keys))
	for _, k := range keys {
		f := repo.ProtoFiles[k]
		if f.Name == "" {
			f.Name = k
		}
		files = append(files, f)
	}
	return files
}

// registerNames registers all message, enum, and service names
func (r *Registry) registerNames(protoFile *schema.ProtoFile) error {
	var errs error
	pkg := protoFile.Package
	// Register messages
	for _, msg := range protoFile.Messages {
		errs = multierr.Append(errs, r.registerMessage(getFullName(pkg, msg.Name), msg))
	}

	// Register enums
	for _, enum := range protoFile.Enums {
		errs = multierr.Append(errs, r.registerEnum(getFullName(pkg, enum.Name), enum))
	}

	// Register services
	for _, service := range protoFile.Services {
		fullName := getFullName(pkg, service.Name)
		if existing, ok := r.services[fullName]; ok && existing != service {
			errs = multierr.Append(errs, fmt.Errorf("duplicate service %s", fullName))
			continue
		}
		r.services[fullName] = service
	}

	return errs
}

// registerMessage registers a message and, recursively, its nested types
func (r *Registry) registerMessage(fullName string, msg *schema.Message) error {
	if existing, ok := r.messages[fullName]; ok && existing != msg {
		return fmt.Errorf("duplicate message %s", fullName)
	}
	if _, ok := r.enums[fullName]; ok {
		return fmt.Errorf("%s is declared as both message and enum", fullName)
	}
	r.messages[fullName] = msg

	var errs error
	for _, nestedMsg := range msg.NestedTypes {
		errs = multierr.Append(errs, r.registerMessage(fullName+"."+nestedMsg.Name, nestedMsg))
	}
	for _, nestedEnum := range msg.NestedEnums {
		errs = multierr.Append(errs, r.registerEnum(fullName+"."+nestedEnum.Name, nestedEnum))
	}
	return errs
}

func (r *Registry) registerEnum(fullName string, enum *schema.Enum) error {
	if existing, ok := r.enums[fullName]; ok && existing != enum {
		return fmt.Errorf("duplicate enum %s", fullName)
	}
	if _, ok := r.messages[fullName]; ok {
		return fmt.Errorf("%s is declared as both message and enum", fullName)
	}
	r.enums[fullName] = enum
	return nil
}

// buildDefinitions resolves field type references and validates every
// message and enum of the file
func (r *Registry) buildDefinitions(protoFile *schema.ProtoFile) error {
	var errs error
	for _, msg := range protoFile.Messages {
		errs = multierr.Append(errs, r.buildMessage(getFullName(protoFile.Package, msg.Name), msg))
	}
	for _, enum := range protoFile.Enums {
		errs = multierr.Append(errs, validateEnum(getFullName(protoFile.Package, enum.Name), enum))
	}
	return errs
}

func (r *Registry) buildMessage(fullName string, msg *schema.Message) error {
	var errs error
	for _, field := range msg.AllFields() {
		if err := r.resolveFieldType(&field.Type, fullName); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", fullName, field.Name, err))
		}
	}
	for _, field := range msg.Fields {
		// packed only applies to repeated scalars and enums
		if field.Packed && !(field.IsRepeated() && field.Type.IsPackable()) {
			field.Packed = false
		}
	}
	errs = multierr.Append(errs, validateMessage(fullName, msg))
	msg.Index()

	for _, nestedMsg := range msg.NestedTypes {
		errs = multierr.Append(errs, r.buildMessage(fullName+"."+nestedMsg.Name, nestedMsg))
	}
	for _, nestedEnum := range msg.NestedEnums {
		errs = multierr.Append(errs, validateEnum(fullName+"."+nestedEnum.Name, nestedEnum))
	}
	return errs
}

// resolveFieldType rewrites message and enum references to fully qualified
// names, looked up from scope outwards. A reference to an enum that was
// parsed as a message is corrected to KindEnum, and wrapper well-known types
// become KindWrapper.
func (r *Registry) resolveFieldType(ft *schema.FieldType, scope string) error {
	switch ft.Kind {
	case schema.KindPrimitive:
		if _, ok := schema.LookupPrimitive(string(ft.PrimitiveType)); !ok {
			return fmt.Errorf("unknown scalar type %q", ft.PrimitiveType)
		}
		return nil
	case schema.KindWrapper:
		if _, ok := ft.WrapperType.Primitive(); !ok {
			return fmt.Errorf("unknown wrapper type %q", ft.WrapperType)
		}
		return nil
	case schema.KindMap:
		if ft.MapKey == nil || ft.MapValue == nil {
			return fmt.Errorf("map without key or value type")
		}
		if !ft.MapKey.IsValidMapKey() {
			return fmt.Errorf("invalid map key type %q", ft.MapKey.PrimitiveType)
		}
		if ft.MapValue.Kind == schema.KindMap {
			return fmt.Errorf("map values cannot be maps")
		}
		return r.resolveFieldType(ft.MapValue, scope)
	case schema.KindMessage, schema.KindEnum:
		name := ft.MessageType
		if ft.Kind == schema.KindEnum {
			name = ft.EnumType
		}
		resolved, err := resolveTypeName(name, scope, r.symbols())
		if err != nil {
			return err
		}
		if wt, ok := schema.LookupWrapper(resolved); ok {
			*ft = schema.FieldType{Kind: schema.KindWrapper, WrapperType: wt}
			return nil
		}
		if _, ok := r.enums[resolved]; ok {
			*ft = schema.FieldType{Kind: schema.KindEnum, EnumType: resolved}
			return nil
		}
		*ft = schema.FieldType{Kind: schema.KindMessage, MessageType: resolved}
		return nil
	default:
		return fmt.Errorf("unknown field kind %q", ft.Kind)
	}
}

// symbols is the set of every registered message and enum name
func (r *Registry) symbols() map[string]struct{} {
	all := make(map[string]struct{}, len(r.messages)+len(r.enums))
	for name := range r.messages {
		all[name] = struct{}{}
	}
	for name := range r.enums {
		all[name] = struct{}{}
	}
	return all
}

// buildServices resolves the input and output types of every method
func (r *Registry) buildServices(protoFile *schema.ProtoFile) error {
	var errs error
	pkg := protoFile.Package
	all := r.symbols()
	for _, service := range protoFile.Services {
		fullName := getFullName(pkg, service.Name)
		for _, method := range service.Methods {
			for _, typeName := range []*string{&method.InputType, &method.OutputType} {
				resolved, err := resolveTypeName(*typeName, pkg, all)
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("%s.%s: %w", fullName, method.Name, err))
					continue
				}
				if _, ok := r.messages[resolved]; !ok {
					errs = multierr.Append(errs, fmt.Errorf("%s.%s: %s is not a message", fullName, method.Name, resolved))
					continue
				}
				*typeName = resolved
			}
		}
	}
	return errs
}

func getFullName(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// GetMessage retrieves a message definition by name. Fully qualified names
// may carry a leading dot; an unqualified name matches when exactly one
// registered message ends with it.
func (r *Registry) GetMessage(name string) (*schema.Message, error) {
	_, msg, err := r.FindMessage(name)
	return msg, err
}

// FindMessage is GetMessage that also returns the fully qualified name the
// lookup resolved to.
func (r *Registry) FindMessage(name string) (string, *schema.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fullName, err := lookup(name, r.messages)
	if err != nil {
		return "", nil, fmt.Errorf("message not found: %w", err)
	}
	return fullName, r.messages[fullName], nil
}

// GetEnum retrieves an enum definition by name
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fullName, err := lookup(name, r.enums)
	if err != nil {
		return nil, fmt.Errorf("enum not found: %w", err)
	}
	return r.enums[fullName], nil
}

// GetService retrieves a service definition by name
func (r *Registry) GetService(name string) (*schema.Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fullName, err := lookup(name, r.services)
	if err != nil {
		return nil, fmt.Errorf("service not found: %w", err)
	}
	return r.services[fullName], nil
}

// FullServiceName returns the fully qualified name a service lookup resolves to
func (r *Registry) FullServiceName(name string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lookup(name, r.services)
}

func lookup[T any](name string, table map[string]T) (string, error) {
	name = strings.TrimPrefix(name, ".")
	if _, exists := table[name]; exists {
		return name, nil
	}

	// Try without package prefix
	var matches []string
	for fullName := range table {
		if strings.HasSuffix(fullName, "."+name) {
			matches = append(matches, fullName)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s", name)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("%s is ambiguous: %s", name, strings.Join(matches, ", "))
	}
}

// ListMessages returns all registered message names, sorted
func (r *Registry) ListMessages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.messages)
}

// ListEnums returns all registered enum names, sorted
func (r *Registry) ListEnums() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.enums)
}

// ListServices returns all registered service names, sorted
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.services)
}

func sortedKeys[T any](table map[string]T) []string {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) hasFile(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.repo.ProtoFiles[name]
	return ok
}

// Repo returns the files loaded so far, keyed by file name
func (r *Registry) Repo() *schema.ProtoRepo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.repo
}
