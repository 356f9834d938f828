package model

// BoneMask is a named subset of skeleton joints that a layer may affect.
// A nil *BoneMask admits every bone.
type BoneMask struct {
	Name  string
	names []string
	bones map[string]struct{}
}

// NewBoneMask creates a mask admitting the listed bone names.
//
// Parameters:
//   - name: the mask name
//   - bones: the names of the admitted bones
//
// Returns:
//   - *BoneMask: the new mask
func NewBoneMask(name string, bones ...string) *BoneMask {
	m := &BoneMask{Name: name, names: bones, bones: make(map[string]struct{}, len(bones))}
	for _, b := range bones {
		m.bones[b] = struct{}{}
	}
	return m
}

// Contains reports whether the mask admits the named bone.
func (m *BoneMask) Contains(bone string) bool {
	if m == nil {
		return true
	}
	_, ok := m.bones[bone]
	return ok
}

// Bones returns the admitted bone names in declaration order.
func (m *BoneMask) Bones() []string {
	if m == nil {
		return nil
	}
	return m.names
}
