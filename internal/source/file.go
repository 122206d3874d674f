package source

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/ferrule-go/ferrule/internal/definition"
)

// File is a definition source backed by a YAML file. Loading is deferred
// until the first access and happens at most once; the decoded document
// must be a mapping of entry name to literal or definition descriptor,
// otherwise the source fails with an InvalidDefinitionError.
//
// Definition descriptors are mappings with a single reserved key:
//
//	db.dsn:  { $env: DATABASE_URL, default: "postgres://localhost" }
//	cache:   { $ref: cache.memory }
//	banner:  { $string: "{app.name} v{app.version}" }
//	repo:    { $object: app.repository, constructor: [{ $ref: db }], lazy: true }
//	mailer:  { $factory: mailer.builder, parameters: { transport: smtp } }
type File struct {
	*Array

	path string
	once sync.Once
	err  error
}

// NewFile creates a lazily loaded file source for path.
func NewFile(path string) *File {
	return &File{Array: NewArray(), path: path}
}

// Path returns the backing file path.
func (s *File) Path() string { return s.path }

// Definition loads the file on first use, then behaves as an array source.
func (s *File) Definition(name string) (definition.Definition, bool, error) {
	if err := s.load(); err != nil {
		return nil, false, err
	}
	return s.Array.Definition(name)
}

// Definitions loads the file on first use, then enumerates exact keys.
func (s *File) Definitions() (map[string]definition.Definition, error) {
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.Array.Definitions()
}

func (s *File) load() error {
	s.once.Do(func() {
		data, err := os.ReadFile(s.path)
		if err != nil {
			s.err = definition.InvalidDefinitionError{
				Cause: fmt.Errorf("reading definition file %s: %w", s.path, err),
			}
			return
		}

		var doc yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			s.err = definition.InvalidDefinitionError{
				Cause: fmt.Errorf("parsing definition file %s: %w", s.path, err),
			}
			return
		}

		root := documentRoot(&doc)
		if root == nil || root.Kind != yaml.MappingNode {
			s.err = definition.InvalidDefinitionError{
				Cause: fmt.Errorf("definition file %s must contain a mapping of entry names", s.path),
			}
			return
		}

		// Mapping order in the file is the declaration order, which
		// governs wildcard precedence.
		for i := 0; i+1 < len(root.Content); i += 2 {
			key := root.Content[i].Value
			value, err := decodeNode(root.Content[i+1])
			if err != nil {
				s.err = definition.InvalidDefinitionError{Name: key, Cause: err}
				return
			}
			s.Array.Add(key, normalize(value))
		}
	})

	return s.err
}

func documentRoot(doc *yaml.Node) *yaml.Node {
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		return doc.Content[0]
	}
	return doc
}

// normalize wraps a raw literal into a Value definition.
func normalize(v any) definition.Definition {
	if def, ok := v.(definition.Definition); ok {
		return def
	}
	return definition.NewValue(v)
}

// decodeNode converts a YAML node into a literal or a Definition.
func decodeNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil

	case yaml.SequenceNode:
		return decodeSequence(node)

	case yaml.MappingNode:
		if descriptor := descriptorKey(node); descriptor != "" {
			return decodeDescriptor(descriptor, node)
		}
		return decodeMapping(node)

	case yaml.AliasNode:
		return decodeNode(node.Alias)
	}

	return nil, fmt.Errorf("unsupported YAML node kind %d", node.Kind)
}

func decodeSequence(node *yaml.Node) (any, error) {
	values := make([]any, 0, len(node.Content))
	hasDefinition := false
	for _, item := range node.Content {
		v, err := decodeNode(item)
		if err != nil {
			return nil, err
		}
		if _, ok := v.(definition.Definition); ok {
			hasDefinition = true
		}
		values = append(values, v)
	}

	if !hasDefinition {
		return values, nil
	}

	// Sequences holding nested definitions become array definitions keyed
	// by position so the engine resolves the elements.
	entries := make([]definition.ArrayEntry, len(values))
	for i, v := range values {
		entries[i] = definition.ArrayEntry{Key: strconv.Itoa(i), Value: v}
	}
	return definition.NewArray(entries...), nil
}

func decodeMapping(node *yaml.Node) (any, error) {
	entries := make([]definition.ArrayEntry, 0, len(node.Content)/2)
	hasDefinition := false
	plain := make(map[string]any, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		v, err := decodeNode(node.Content[i+1])
		if err != nil {
			return nil, err
		}
		if _, ok := v.(definition.Definition); ok {
			hasDefinition = true
		}
		entries = append(entries, definition.ArrayEntry{Key: key, Value: v})
		plain[key] = v
	}

	if !hasDefinition {
		return plain, nil
	}
	return definition.NewArray(entries...), nil
}

// descriptorKey returns the reserved "$..." key when the mapping is a
// definition descriptor.
func descriptorKey(node *yaml.Node) string {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if strings.HasPrefix(node.Content[i].Value, "$") {
			return node.Content[i].Value
		}
	}
	return ""
}

func decodeDescriptor(kind string, node *yaml.Node) (any, error) {
	fields := make(map[string]*yaml.Node, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		fields[node.Content[i].Value] = node.Content[i+1]
	}

	switch kind {
	case "$ref":
		return definition.NewReference(fields["$ref"].Value), nil

	case "$string":
		return definition.NewString(fields["$string"].Value), nil

	case "$env":
		def := definition.NewEnv(fields["$env"].Value)
		if optNode, ok := fields["optional"]; ok {
			if err := optNode.Decode(&def.Optional); err != nil {
				return nil, err
			}
		}
		if defNode, ok := fields["default"]; ok {
			v, err := decodeNode(defNode)
			if err != nil {
				return nil, err
			}
			def.Default = v
			def.HasDefault = true
		}
		return def, nil

	case "$object":
		def := definition.NewObject(fields["$object"].Value)
		if err := decodeObjectFields(def, fields); err != nil {
			return nil, err
		}
		return def, nil

	case "$factory":
		def := definition.NewFactory(fields["$factory"].Value)
		if params, ok := fields["parameters"]; ok {
			if params.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("$factory parameters must be a mapping")
			}
			for i := 0; i+1 < len(params.Content); i += 2 {
				v, err := decodeNode(params.Content[i+1])
				if err != nil {
					return nil, err
				}
				def.Parameters = append(def.Parameters, definition.FactoryParam{
					Name:  params.Content[i].Value,
					Value: v,
				})
			}
		}
		if err := decodeScope(fields, &def.Scope, &def.Lazy); err != nil {
			return nil, err
		}
		return def, nil
	}

	return nil, fmt.Errorf("unknown definition descriptor %q", kind)
}

func decodeObjectFields(def *definition.Object, fields map[string]*yaml.Node) error {
	if args, ok := fields["constructor"]; ok {
		if args.Kind != yaml.SequenceNode {
			return fmt.Errorf("$object constructor must be a sequence")
		}
		def.HasConstructor = true
		for _, item := range args.Content {
			v, err := decodeNode(item)
			if err != nil {
				return err
			}
			def.ConstructorArgs = append(def.ConstructorArgs, v)
		}
	}

	if props, ok := fields["properties"]; ok {
		if props.Kind != yaml.MappingNode {
			return fmt.Errorf("$object properties must be a mapping")
		}
		for i := 0; i+1 < len(props.Content); i += 2 {
			v, err := decodeNode(props.Content[i+1])
			if err != nil {
				return err
			}
			def.Properties = append(def.Properties, definition.Property{
				Name:  props.Content[i].Value,
				Value: v,
			})
		}
	}

	if methods, ok := fields["methods"]; ok {
		if methods.Kind != yaml.MappingNode {
			return fmt.Errorf("$object methods must be a mapping")
		}
		for i := 0; i+1 < len(methods.Content); i += 2 {
			argsNode := methods.Content[i+1]
			call := definition.MethodCall{Name: methods.Content[i].Value}
			if argsNode.Kind != yaml.SequenceNode {
				return fmt.Errorf("$object method %s arguments must be a sequence", call.Name)
			}
			for _, item := range argsNode.Content {
				v, err := decodeNode(item)
				if err != nil {
					return err
				}
				call.Args = append(call.Args, v)
			}
			def.MethodCalls = append(def.MethodCalls, call)
		}
	}

	return decodeScope(fields, &def.Scope, &def.Lazy)
}

func decodeScope(fields map[string]*yaml.Node, scope *definition.Scope, lazy *bool) error {
	if node, ok := fields["scope"]; ok {
		switch node.Value {
		case "singleton":
			*scope = definition.Singleton
		case "transient":
			*scope = definition.Transient
		default:
			return fmt.Errorf("unknown scope %q", node.Value)
		}
	}
	if node, ok := fields["lazy"]; ok {
		if err := node.Decode(lazy); err != nil {
			return err
		}
	}
	return nil
}
