package el

import (
	"strings"

	"github.com/vango-dev/chatui/internal/errors"
	"github.com/vango-dev/chatui/pkg/dom"
)

// propertyNames are assigned as typed properties rather than attributes.
var propertyNames = map[string]bool{
	"textContent": true, "innerText": true, "innerHTML": true,
	"className": true, "value": true, "style": true,
	"checked": true, "selected": true,
	"src": true, "srcdoc": true, "srcset": true,
	"tabindex": true, "target": true,
}

// FromMap resolves an untyped attribute map into a Config. Keys are
// resolved in sorted order:
//
//   - "style" must be a map[string]string or map[string]any
//   - "onAttach" and "onUpdate" must be hook functions
//   - "ref" must be an *ElementRef
//   - "on<event>" for a recognized event must be a listener
//   - allow-listed property names and bool values become properties
//   - everything else becomes a stringified attribute
func FromMap(attrs map[string]any) (Config, error) {
	cfg := make(Config, 0, len(attrs))
	for _, key := range sortedKeys(attrs) {
		entry, err := resolve(key, attrs[key])
		if err != nil {
			return nil, err
		}
		cfg = append(cfg, entry)
	}
	return cfg, nil
}

func resolve(key string, value any) (Entry, error) {
	switch key {
	case "style":
		switch v := value.(type) {
		case map[string]string:
			return StyleMap(v), nil
		case StyleMap:
			return v, nil
		case map[string]any:
			styles := make(StyleMap, len(v))
			for name, val := range v {
				styles[name] = dom.Stringify(val)
			}
			return styles, nil
		case string:
			return Property{Name: "style", Value: v}, nil
		}
		return nil, invalid(key, "style must be a map of property names to values", value)

	case "onAttach":
		switch fn := value.(type) {
		case AttachFunc:
			return OnAttach(fn), nil
		case func(*ElementRef):
			return OnAttach(fn), nil
		}
		return nil, invalid(key, "onAttach must be a func(*el.ElementRef)", value)

	case "onUpdate":
		switch fn := value.(type) {
		case UpdateFunc:
			return OnUpdate(fn), nil
		case func(any, *ElementRef) any:
			return OnUpdate(fn), nil
		}
		return nil, invalid(key, "onUpdate must be a func(any, *el.ElementRef) any", value)

	case "ref":
		if target, ok := value.(*ElementRef); ok && target != nil {
			return Ref(target), nil
		}
		return nil, invalid(key, "ref must be a non-nil *el.ElementRef", value)
	}

	if strings.HasPrefix(key, "on") {
		event := strings.ToLower(key[2:])
		if IsEventName(event) {
			switch fn := value.(type) {
			case dom.Listener:
				return On(event, fn), nil
			case func(*dom.Event):
				return On(event, fn), nil
			}
			return nil, invalid(key, "event handlers must be a func(*dom.Event)", value)
		}
	}

	if _, isBool := value.(bool); isBool || propertyNames[key] {
		return Prop(key, value), nil
	}
	switch value.(type) {
	case func(*dom.Event), dom.Listener, AttachFunc, UpdateFunc:
		return nil, invalid(key, "functions are only accepted for events and hooks", value)
	}
	return Attr(key, dom.Stringify(value)), nil
}

// ChildrenOf validates dynamic child values. Strings and Text become
// text children; Mount values (or plain mount functions) become nested
// children. Anything else fails with E101.
func ChildrenOf(values ...any) ([]Child, error) {
	children := make([]Child, 0, len(values))
	for i, v := range values {
		switch c := v.(type) {
		case string:
			children = append(children, Text(c))
		case Text:
			children = append(children, c)
		case Mount:
			children = append(children, c)
		case func(*dom.Element) *ElementRef:
			children = append(children, Mount(c))
		default:
			return nil, errors.New("E101").
				WithDetailf("child %d has type %T", i, v).
				WithSuggestion("Pass text or the result of calling an element factory.")
		}
	}
	return children, nil
}

func invalid(key, want string, value any) *errors.Error {
	return errors.New("E100").
		WithDetailf("%q has type %T", key, value).
		WithSuggestion(want)
}
