package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/Carmen-Shannon/oxy-anim/engine/clip"
	"github.com/Carmen-Shannon/oxy-anim/engine/controller"
)

func describeController(w io.Writer, c *controller.Controller) {
	inputs := c.Inputs()
	fmt.Fprintf(w, "inputs (%d, %d bytes):\n", inputs.Len(), inputs.Size())
	for i := range inputs.Len() {
		in := inputs.Input(i)
		fmt.Fprintf(w, "  %d %s %s\n", i, in.Name, in.Type)
	}
	fmt.Fprintf(w, "slots: %s\n", strings.Join(c.Slots(), ", "))
	fmt.Fprintln(w, "sets:")
	for _, e := range c.Entries() {
		fmt.Fprintf(w, "  set %d %s: %s\n", e.Set, slotName(c, e.Slot), e.Path)
	}
	for _, m := range c.Masks() {
		fmt.Fprintf(w, "mask %s: %s\n", m.Name, strings.Join(m.Bones(), ", "))
	}
	for i, chain := range c.IKChains() {
		fmt.Fprintf(w, "ik %d (%d iterations): %s\n", i, chain.MaxIterations, strings.Join(chain.Bones, " -> "))
	}
	if b := c.RootMotionBone(); b != "" {
		fmt.Fprintf(w, "root motion bone: %s\n", b)
	}
	fmt.Fprintln(w, "tree:")
	describeNode(w, c, c.Root(), 1)
}

func slotName(c *controller.Controller, slot uint32) string {
	if slots := c.Slots(); int(slot) < len(slots) {
		return slots[slot]
	}
	return fmt.Sprintf("#%d", slot)
}

func inputName(c *controller.Controller, i uint32) string {
	if int(i) < c.Inputs().Len() {
		return c.Inputs().Input(int(i)).Name
	}
	return fmt.Sprintf("#%d", i)
}

func maskName(c *controller.Controller, i uint32) string {
	if i == controller.NoMask {
		return "none"
	}
	if masks := c.Masks(); int(i) < len(masks) {
		return masks[i].Name
	}
	return fmt.Sprintf("#%d", i)
}

func describeNode(w io.Writer, c *controller.Controller, n controller.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n == nil {
		fmt.Fprintf(w, "%s(none)\n", indent)
		return
	}
	header := n.Type().String()
	if n.Name() != "" {
		header += " " + n.Name()
	}
	if events := controller.DecodeEvents(n.Events()); len(events) > 0 {
		header += fmt.Sprintf(" [%d events]", len(events))
	}

	switch n := n.(type) {
	case *controller.AnimationNode:
		fmt.Fprintf(w, "%s%s slot=%s looped=%t\n", indent, header, slotName(c, n.Slot), n.Looped())
	case *controller.Blend1DNode:
		fmt.Fprintf(w, "%s%s input=%s\n", indent, header, inputName(c, n.Input))
		for _, child := range n.Children {
			fmt.Fprintf(w, "%s  %g: %s\n", indent, child.Value, slotName(c, child.Slot))
		}
	case *controller.Blend2DNode:
		fmt.Fprintf(w, "%s%s inputs=(%s, %s) triangles=%d\n", indent, header, inputName(c, n.XInput), inputName(c, n.YInput), n.TriangleCount())
		for _, child := range n.Children {
			fmt.Fprintf(w, "%s  (%g, %g): %s\n", indent, child.Value[0], child.Value[1], slotName(c, child.Slot))
		}
	case *controller.ConditionNode:
		fmt.Fprintf(w, "%s%s %q blend=%.3fs\n", indent, header, n.Condition, n.BlendLength.Seconds())
		fmt.Fprintf(w, "%s  true:\n", indent)
		describeNode(w, c, n.True, depth+2)
		fmt.Fprintf(w, "%s  false:\n", indent)
		describeNode(w, c, n.False, depth+2)
	case *controller.SelectNode:
		fmt.Fprintf(w, "%s%s input=%s blend=%.3fs\n", indent, header, inputName(c, n.Input), n.BlendLength.Seconds())
		for _, child := range n.Children {
			fmt.Fprintf(w, "%s  <= %g:\n", indent, child.MaxValue)
			describeNode(w, c, child.Node, depth+2)
		}
	case *controller.GroupNode:
		fmt.Fprintf(w, "%s%s blend=%.3fs\n", indent, header, n.BlendLength.Seconds())
		for i, child := range n.Children {
			fmt.Fprintf(w, "%s  [%d] %q selectable=%t:\n", indent, i, child.Condition, child.Selectable())
			describeNode(w, c, child.Node, depth+2)
		}
		for _, tr := range n.Transitions {
			from := fmt.Sprint(tr.From)
			if tr.From == controller.AnyChild {
				from = "*"
			}
			fmt.Fprintf(w, "%s  %s -> %d blend=%.3fs exit=%g\n", indent, from, tr.To, tr.BlendLength.Seconds(), tr.ExitTime)
		}
	case *controller.LayersNode:
		fmt.Fprintf(w, "%s%s\n", indent, header)
		for _, layer := range n.Layers {
			fmt.Fprintf(w, "%s  layer %s mask=%s:\n", indent, layer.Name, maskName(c, layer.Mask))
			describeNode(w, c, layer.Node, depth+2)
		}
	default:
		fmt.Fprintf(w, "%s%s\n", indent, header)
	}
}

func describeClip(w io.Writer, a *clip.Animation) {
	translations, rotations := a.TrackCount()
	fmt.Fprintf(w, "name: %s\n", a.Name())
	fmt.Fprintf(w, "frames: %d at %g fps (%.3fs)\n", a.FrameCount(), a.FPS(), a.Length().Seconds())
	fmt.Fprintf(w, "tracks: %d translation, %d rotation\n", translations, rotations)
	fmt.Fprintf(w, "root motion: %t\n", a.HasRootMotion())
	fmt.Fprintf(w, "bones: %s\n", strings.Join(a.Bones(), ", "))
}
