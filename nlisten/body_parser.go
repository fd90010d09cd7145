package nlisten

import (
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/muir/nkernel/nevent"
	"github.com/muir/nkernel/nmsg"
	"github.com/muir/nkernel/nresolve"
	"github.com/muir/reflectutils"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Parser decodes a raw request body.
type Parser func(body []byte) (any, error)

// JSONParser decodes JSON. An empty body is an empty object.
func JSONParser(body []byte) (any, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return map[string]any{}, nil
	}
	var v any
	if err := sonic.Unmarshal(body, &v); err != nil {
		return nil, errors.Wrap(err, "decode json body")
	}
	return v, nil
}

// YAMLParser decodes YAML. An empty body is an empty object.
func YAMLParser(body []byte) (any, error) {
	v := map[string]any{}
	if err := yaml.Unmarshal(body, &v); err != nil {
		return nil, errors.Wrap(err, "decode yaml body")
	}
	return v, nil
}

// BodyParser fills the parsed body of requests whose method and content
// type it knows.
type BodyParser struct {
	methods map[string]bool
	parsers map[string]Parser
}

type BodyParserOption func(*BodyParser)

// WithoutJSON leaves out the default JSON parser.
func WithoutJSON() BodyParserOption {
	return func(b *BodyParser) {
		delete(b.parsers, "application/json")
	}
}

// WithParser adds a parser for the given content types
func WithParser(p Parser, contentTypes ...string) BodyParserOption {
	return func(b *BodyParser) {
		b.AddParser(contentTypes, p)
	}
}

func NewBodyParser(opts ...BodyParserOption) *BodyParser {
	b := &BodyParser{
		parsers: map[string]Parser{"application/json": JSONParser},
	}
	b.SetMethods(http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete)
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BodyParser) AddParser(contentTypes []string, p Parser) *BodyParser {
	for _, ct := range contentTypes {
		b.parsers[strings.ToLower(ct)] = p
	}
	return b
}

// Parsers returns a copy of the content type to parser map
func (b *BodyParser) Parsers() map[string]Parser {
	m := make(map[string]Parser, len(b.parsers))
	for k, v := range b.parsers {
		m[k] = v
	}
	return m
}

func (b *BodyParser) SetMethods(methods ...string) *BodyParser {
	b.methods = make(map[string]bool, len(methods))
	for _, m := range methods {
		b.methods[strings.ToUpper(m)] = true
	}
	return b
}

// Methods returns the handled methods, unordered
func (b *BodyParser) Methods() []string {
	out := make([]string, 0, len(b.methods))
	for m := range b.methods {
		out = append(out, m)
	}
	return out
}

func (b *BodyParser) SubscribedEvents() []nevent.Subscription {
	return []nevent.Subscription{{
		Event:    nevent.RequestName,
		Priority: nevent.PriorityHigh,
		Listener: nevent.Typed(b.onRequest),
	}}
}

func (b *BodyParser) onRequest(e *nevent.RequestEvent) error {
	req, err := b.Parse(e.Request())
	if err != nil {
		return err
	}
	e.SetRequest(req)
	return nil
}

// Parse returns req with its parsed body filled in. Requests with other
// methods or unknown content types are returned as is.
func (b *BodyParser) Parse(req *nmsg.Request) (*nmsg.Request, error) {
	if !b.methods[req.Method()] {
		return req, nil
	}
	ct := req.HeaderLine("Content-Type")
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		ct = mt
	}
	parser, ok := b.parsers[strings.ToLower(ct)]
	if !ok {
		return req, nil
	}
	parsed, err := parser(req.Body())
	if err != nil {
		return nil, nmsg.BadRequest(err)
	}
	return req.WithParsedBody(parsed), nil
}

// Bind copies a parsed object body into the struct that target points
// to. Fields are matched by their json tag name, or field name.
func Bind(req *nmsg.Request, target any) error {
	body, ok := req.ParsedBody().(map[string]any)
	if !ok {
		return nmsg.BadRequest(errors.Errorf("request body is a %T, not an object", req.ParsedBody()))
	}
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.Elem().Kind() != reflect.Struct {
		return errors.Errorf("Bind target must be a pointer to a struct, not %T", target)
	}
	model := v.Elem()
	var bindErr error
	reflectutils.WalkStructElements(model.Type(), func(field reflect.StructField) bool {
		if bindErr != nil {
			return false
		}
		if field.Anonymous {
			return true
		}
		if field.PkgPath != "" {
			return false
		}
		name := field.Name
		if tag, ok := field.Tag.Lookup("json"); ok {
			name, _, _ = strings.Cut(tag, ",")
			if name == "-" {
				return false
			}
			if name == "" {
				name = field.Name
			}
		}
		raw, ok := body[name]
		if !ok || raw == nil {
			return false
		}
		f := model.FieldByIndex(field.Index)
		rv := reflect.ValueOf(raw)
		switch {
		case rv.Type().AssignableTo(f.Type()):
			f.Set(rv)
		case rv.CanFloat() || rv.CanInt() || rv.CanUint():
			c, ok := nresolve.ConvertNumber(rv, f.Type())
			if !ok {
				bindErr = nmsg.BadRequest(errors.Errorf("body field %s: %v does not fit %s", name, raw, f.Type()))
				return false
			}
			f.Set(c)
		case rv.Type().ConvertibleTo(f.Type()) && rv.Kind() != reflect.String && f.Kind() != reflect.String:
			f.Set(rv.Convert(f.Type()))
		default:
			bindErr = nmsg.BadRequest(errors.Errorf("body field %s is a %T, need %s", name, raw, f.Type()))
		}
		return false
	})
	return bindErr
}
