package el

// AttachFunc runs once, after the node and all declared children are attached.
type AttachFunc func(ref *ElementRef)

// UpdateFunc runs on every Update. Returning the literal false stops
// propagation to children; every other value continues.
type UpdateFunc func(data any, ref *ElementRef) any

// LifecycleHook is a reserved entry that is never forwarded to the node.
type LifecycleHook struct {
	attach AttachFunc
	update UpdateFunc
}

func (h LifecycleHook) apply(n *node) {
	if h.attach != nil {
		n.onAttach = h.attach
	}
	if h.update != nil {
		n.onUpdate = h.update
	}
}

// OnAttach registers the attach hook. A later OnAttach replaces an earlier one.
func OnAttach(fn AttachFunc) LifecycleHook { return LifecycleHook{attach: fn} }

// OnUpdate registers the update hook. A later OnUpdate replaces an earlier one.
func OnUpdate(fn UpdateFunc) LifecycleHook { return LifecycleHook{update: fn} }

// RefBinding writes the node's handle into an external ElementRef at
// construction time, so code outside the tree can reach the node.
type RefBinding struct {
	Target *ElementRef
}

func (b RefBinding) apply(n *node) {
	if b.Target != nil {
		*b.Target = *n.ref
	}
}

// Ref binds target to the node's handle.
func Ref(target *ElementRef) RefBinding { return RefBinding{Target: target} }
