package controller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/common"
	"github.com/Carmen-Shannon/oxy-anim/engine/model"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// ErrSource is returned for controller sources that are well-formed YAML but describe an invalid tree.
var ErrSource = errors.New("controller: invalid source")

// anyChildName selects AnyChild in a group transition.
const anyChildName = "*"

// Source is the YAML authoring format of a controller.
type Source struct {
	Inputs         []InputSource  `yaml:"inputs"`
	Slots          []string       `yaml:"slots"`
	Sets           []EntrySource  `yaml:"sets"`
	Masks          []MaskSource   `yaml:"masks"`
	IK             []IKSource     `yaml:"ik"`
	RootMotionBone string         `yaml:"root_motion_bone"`
	Root           map[string]any `yaml:"root"`
}

type InputSource struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

type EntrySource struct {
	Set  uint32 `yaml:"set"`
	Slot string `yaml:"slot"`
	Path string `yaml:"path"`
}

type MaskSource struct {
	Name  string   `yaml:"name"`
	Bones []string `yaml:"bones"`
}

type IKSource struct {
	Bones      []string `yaml:"bones"`
	Iterations uint32   `yaml:"iterations"`
}

// NodeHeader holds the keys every node body carries. Node bodies are decoded from generic maps so
// each kind can be checked for unknown keys.
type NodeHeader struct {
	Type   string        `mapstructure:"type"`
	Name   string        `mapstructure:"name"`
	Events []eventSource `mapstructure:"events"`
}

type eventSource struct {
	Type    uint32  `mapstructure:"type"`
	Time    float32 `mapstructure:"time"`
	Payload string  `mapstructure:"payload"`
}

type animationSource struct {
	NodeHeader `mapstructure:",squash"`
	Slot       string `mapstructure:"slot"`
	Looped     bool   `mapstructure:"looped"`
}

type blend1DSource struct {
	NodeHeader `mapstructure:",squash"`
	Input      string `mapstructure:"input"`
	Children   []struct {
		Value float32 `mapstructure:"value"`
		Slot  string  `mapstructure:"slot"`
	} `mapstructure:"children"`
}

type blend2DSource struct {
	NodeHeader `mapstructure:",squash"`
	XInput     string `mapstructure:"x_input"`
	YInput     string `mapstructure:"y_input"`
	Children   []struct {
		X    float32 `mapstructure:"x"`
		Y    float32 `mapstructure:"y"`
		Slot string  `mapstructure:"slot"`
	} `mapstructure:"children"`
}

type conditionSource struct {
	NodeHeader  `mapstructure:",squash"`
	Condition   string         `mapstructure:"condition"`
	BlendLength float32        `mapstructure:"blend_length"`
	True        map[string]any `mapstructure:"on_true"`
	False       map[string]any `mapstructure:"on_false"`
}

type selectSource struct {
	NodeHeader  `mapstructure:",squash"`
	Input       string  `mapstructure:"input"`
	BlendLength float32 `mapstructure:"blend_length"`
	Children    []struct {
		MaxValue float32        `mapstructure:"max_value"`
		Node     map[string]any `mapstructure:"node"`
	} `mapstructure:"children"`
}

type groupSource struct {
	NodeHeader  `mapstructure:",squash"`
	BlendLength float32 `mapstructure:"blend_length"`
	Children    []struct {
		Selectable *bool          `mapstructure:"selectable"`
		Condition  string         `mapstructure:"condition"`
		Node       map[string]any `mapstructure:"node"`
	} `mapstructure:"children"`
	Transitions []struct {
		From        string   `mapstructure:"from"`
		To          string   `mapstructure:"to"`
		BlendLength float32  `mapstructure:"blend_length"`
		ExitTime    *float32 `mapstructure:"exit_time"`
	} `mapstructure:"transitions"`
}

type layersSource struct {
	NodeHeader `mapstructure:",squash"`
	Layers     []struct {
		Name string         `mapstructure:"name"`
		Mask string         `mapstructure:"mask"`
		Node map[string]any `mapstructure:"node"`
	} `mapstructure:"layers"`
}

// CompileSource parses a YAML controller source and builds the Controller it describes.
//
// Parameters:
//   - data: the YAML document
//
// Returns:
//   - *Controller: the compiled controller, with unresolved entries
//   - error: a YAML error, or an error wrapping ErrSource or a validation error
func CompileSource(data []byte) (*Controller, error) {
	var src Source
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("controller: parse source: %w", err)
	}
	return src.Compile()
}

// Compile builds the Controller the source describes.
func (s *Source) Compile() (*Controller, error) {
	b := &sourceBuilder{src: s}
	var inputs []Input
	for _, in := range s.Inputs {
		typ, ok := ParseInputType(in.Type)
		if !ok {
			return nil, fmt.Errorf("%w: input %q has unknown type %q", ErrSource, in.Name, in.Type)
		}
		inputs = append(inputs, Input{Name: in.Name, Type: typ})
		b.inputs.Add(in.Name, typ)
	}

	var entries []AnimationEntry
	for _, e := range s.Sets {
		slot, err := b.slot(e.Slot)
		if err != nil {
			return nil, err
		}
		entries = append(entries, AnimationEntry{Set: e.Set, Slot: slot, Path: e.Path})
	}

	var masks []*model.BoneMask
	for _, m := range s.Masks {
		masks = append(masks, model.NewBoneMask(m.Name, m.Bones...))
	}

	var chains []IKChain
	for _, ik := range s.IK {
		chains = append(chains, IKChain{MaxIterations: common.Coalesce(ik.Iterations, 5), Bones: ik.Bones})
	}

	if s.Root == nil {
		return nil, fmt.Errorf("%w: missing root", ErrSource)
	}
	root, err := b.node(s.Root)
	if err != nil {
		return nil, err
	}

	return New(root,
		WithInputs(inputs...),
		WithSlots(s.Slots...),
		WithEntries(entries...),
		WithMasks(masks...),
		WithIK(chains...),
		WithRootMotionBone(s.RootMotionBone),
	)
}

type sourceBuilder struct {
	src    *Source
	inputs InputDecl
}

func (b *sourceBuilder) slot(name string) (uint32, error) {
	for i, s := range b.src.Slots {
		if s == name {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown slot %q", ErrSource, name)
}

func (b *sourceBuilder) input(name string) (uint32, error) {
	if i := b.inputs.Index(name); i >= 0 {
		return uint32(i), nil
	}
	return 0, fmt.Errorf("%w: unknown input %q", ErrSource, name)
}

func (b *sourceBuilder) mask(name string) (uint32, error) {
	if name == "" {
		return NoMask, nil
	}
	for i, m := range b.src.Masks {
		if m.Name == name {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown mask %q", ErrSource, name)
}

func decodeNode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("%w: %v", ErrSource, err)
	}
	return nil
}

func (b *sourceBuilder) base(s NodeHeader) NodeBase {
	base := NodeBase{NodeName: s.Name}
	if len(s.Events) > 0 {
		var track EventTrackBuilder
		for _, e := range s.Events {
			track.Add(e.Type, e.Time, []byte(e.Payload))
		}
		base.EventData = track.Bytes()
	}
	return base
}

// compositeBase is base for nodes that only route their children. Those nodes never play an event
// track, so authoring one is an error.
func (b *sourceBuilder) compositeBase(kind NodeType, s NodeHeader) (NodeBase, error) {
	if len(s.Events) > 0 {
		return NodeBase{}, fmt.Errorf("%w: %s node %q cannot carry events", ErrSource, kind, s.Name)
	}
	return b.base(s), nil
}

func (b *sourceBuilder) node(raw map[string]any) (Node, error) {
	kind, _ := raw["type"].(string)
	t, ok := ParseNodeType(strings.ToLower(kind))
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, kind)
	}
	switch t {
	case NodeAnimation:
		return b.animation(raw)
	case NodeBlend1D:
		return b.blend1D(raw)
	case NodeBlend2D:
		return b.blend2D(raw)
	case NodeCondition:
		return b.condition(raw)
	case NodeSelect:
		return b.selectNode(raw)
	case NodeGroup:
		return b.group(raw)
	default:
		return b.layers(raw)
	}
}

func (b *sourceBuilder) optionalNode(raw map[string]any) (Node, error) {
	if raw == nil {
		return nil, nil
	}
	return b.node(raw)
}

func (b *sourceBuilder) animation(raw map[string]any) (Node, error) {
	var s animationSource
	if err := decodeNode(raw, &s); err != nil {
		return nil, err
	}
	slot, err := b.slot(s.Slot)
	if err != nil {
		return nil, err
	}
	n := &AnimationNode{NodeBase: b.base(s.NodeHeader), Slot: slot}
	if s.Looped {
		n.Flags |= FlagLooped
	}
	return n, nil
}

func (b *sourceBuilder) blend1D(raw map[string]any) (Node, error) {
	var s blend1DSource
	if err := decodeNode(raw, &s); err != nil {
		return nil, err
	}
	input, err := b.input(s.Input)
	if err != nil {
		return nil, err
	}
	n := &Blend1DNode{NodeBase: b.base(s.NodeHeader), Input: input}
	for _, c := range s.Children {
		slot, err := b.slot(c.Slot)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, Blend1DChild{Value: c.Value, Slot: slot})
	}
	return n, nil
}

func (b *sourceBuilder) blend2D(raw map[string]any) (Node, error) {
	var s blend2DSource
	if err := decodeNode(raw, &s); err != nil {
		return nil, err
	}
	x, err := b.input(s.XInput)
	if err != nil {
		return nil, err
	}
	y, err := b.input(s.YInput)
	if err != nil {
		return nil, err
	}
	n := &Blend2DNode{NodeBase: b.base(s.NodeHeader), XInput: x, YInput: y}
	for _, c := range s.Children {
		slot, err := b.slot(c.Slot)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, Blend2DChild{Value: [2]float32{c.X, c.Y}, Slot: slot})
	}
	return n, nil
}

func (b *sourceBuilder) condition(raw map[string]any) (Node, error) {
	var s conditionSource
	if err := decodeNode(raw, &s); err != nil {
		return nil, err
	}
	base, err := b.compositeBase(NodeCondition, s.NodeHeader)
	if err != nil {
		return nil, err
	}
	n := &ConditionNode{
		NodeBase:    base,
		Condition:   s.Condition,
		BlendLength: common.TimeFromSeconds(s.BlendLength),
	}
	if n.True, err = b.optionalNode(s.True); err != nil {
		return nil, err
	}
	if n.False, err = b.optionalNode(s.False); err != nil {
		return nil, err
	}
	return n, nil
}

func (b *sourceBuilder) selectNode(raw map[string]any) (Node, error) {
	var s selectSource
	if err := decodeNode(raw, &s); err != nil {
		return nil, err
	}
	base, err := b.compositeBase(NodeSelect, s.NodeHeader)
	if err != nil {
		return nil, err
	}
	input, err := b.input(s.Input)
	if err != nil {
		return nil, err
	}
	n := &SelectNode{NodeBase: base, Input: input, BlendLength: common.TimeFromSeconds(s.BlendLength)}
	for _, c := range s.Children {
		child, err := b.node(c.Node)
		if err != nil {
			return nil, err
		}
		n.Children = append(n.Children, SelectChild{MaxValue: c.MaxValue, Node: child})
	}
	return n, nil
}

func (b *sourceBuilder) group(raw map[string]any) (Node, error) {
	var s groupSource
	if err := decodeNode(raw, &s); err != nil {
		return nil, err
	}
	base, err := b.compositeBase(NodeGroup, s.NodeHeader)
	if err != nil {
		return nil, err
	}
	n := &GroupNode{NodeBase: base, BlendLength: common.TimeFromSeconds(s.BlendLength)}
	for _, c := range s.Children {
		child, err := b.node(c.Node)
		if err != nil {
			return nil, err
		}
		gc := GroupChild{Node: child, Condition: c.Condition}
		if c.Selectable == nil || *c.Selectable {
			gc.Flags |= GroupSelectable
		}
		n.Children = append(n.Children, gc)
	}
	index := func(name string) (uint32, error) {
		if name == anyChildName {
			return AnyChild, nil
		}
		for i, c := range n.Children {
			if c.Node.Name() == name {
				return uint32(i), nil
			}
		}
		return 0, fmt.Errorf("%w: group %q has no child %q", ErrSource, n.NodeName, name)
	}
	for _, tr := range s.Transitions {
		from, err := index(tr.From)
		if err != nil {
			return nil, err
		}
		to, err := index(tr.To)
		if err != nil {
			return nil, err
		}
		exit := float32(-1)
		if tr.ExitTime != nil {
			exit = *tr.ExitTime
		}
		n.Transitions = append(n.Transitions, Transition{
			From:        from,
			To:          to,
			BlendLength: common.TimeFromSeconds(tr.BlendLength),
			ExitTime:    exit,
		})
	}
	return n, nil
}

func (b *sourceBuilder) layers(raw map[string]any) (Node, error) {
	var s layersSource
	if err := decodeNode(raw, &s); err != nil {
		return nil, err
	}
	base, err := b.compositeBase(NodeLayers, s.NodeHeader)
	if err != nil {
		return nil, err
	}
	n := &LayersNode{NodeBase: base}
	for _, l := range s.Layers {
		mask, err := b.mask(l.Mask)
		if err != nil {
			return nil, err
		}
		child, err := b.node(l.Node)
		if err != nil {
			return nil, err
		}
		n.Layers = append(n.Layers, Layer{Name: l.Name, Mask: mask, Node: child})
	}
	return n, nil
}
