package resolver

import (
	"fmt"

	"github.com/exprbox/exprbox/internal/boundary"
)

// HostFunc is a host-side function embedded in the data graph. Resolving
// its path reports a function descriptor; invoking it runs the Go closure
// with the sandbox's exported arguments.
type HostFunc func(args []any) (any, error)

// buildRoots materializes the namespace graph from the snapshot. Views are
// plain maps and slices so path descent stays uniform; host behavior hangs
// off HostFunc leaves.
func (r *Resolver) buildRoots() map[string]any {
	snap := r.snap

	item := r.currentItem()
	json := map[string]any{}
	binary := map[string]any{}
	if item != nil {
		if item.JSON != nil {
			json = item.JSON
		}
		binary = binaryView(item.Binary)
	}

	env := map[string]string{}
	if snap.Env != nil {
		env = snap.Env
	}

	params := map[string]any{}
	if snap.Parameters != nil {
		params = snap.Parameters
	}

	data := map[string]any{}
	if snap.Data != nil {
		data = snap.Data
	}

	return map[string]any{
		"$json":      json,
		"$binary":    binary,
		"$input":     r.inputView(),
		"$node":      nodeView(snap.Node),
		"$parameter": params,
		"$workflow":  workflowView(snap.Workflow),
		"$prevNode":  prevNodeView(snap.PrevNode),
		"$data":      data,
		"$env":       env,
		"$runIndex":  snap.RunIndex,
		"$itemIndex": r.itemIndex(),
		"$items":     HostFunc(r.itemsFunc),
	}
}

// inputView exposes the current step's input: the item list as callables
// plus the selected item directly.
func (r *Resolver) inputView() map[string]any {
	view := map[string]any{
		"all":   HostFunc(r.allItems),
		"first": HostFunc(r.firstItem),
		"last":  HostFunc(r.lastItem),
	}
	if item := r.currentItem(); item != nil {
		view["item"] = itemView(item)
	}
	return view
}

func (r *Resolver) allItems(args []any) (any, error) {
	out := make([]any, len(r.snap.Items))
	for i := range r.snap.Items {
		out[i] = itemView(&r.snap.Items[i])
	}
	return out, nil
}

func (r *Resolver) firstItem(args []any) (any, error) {
	if len(r.snap.Items) == 0 {
		return boundary.Undefined, nil
	}
	return itemView(&r.snap.Items[0]), nil
}

func (r *Resolver) lastItem(args []any) (any, error) {
	if len(r.snap.Items) == 0 {
		return boundary.Undefined, nil
	}
	return itemView(&r.snap.Items[len(r.snap.Items)-1]), nil
}

// itemsFunc backs the $items() global. Cross-node item access would need
// full execution history, which a snapshot does not carry.
func (r *Resolver) itemsFunc(args []any) (any, error) {
	if len(args) > 0 {
		return nil, fmt.Errorf("$items: lookup by node name is not available in snapshot mode")
	}
	return r.allItems(nil)
}

func itemView(item *Item) map[string]any {
	view := map[string]any{}
	if item.JSON != nil {
		view["json"] = item.JSON
	} else {
		view["json"] = map[string]any{}
	}
	if len(item.Binary) > 0 {
		view["binary"] = binaryView(item.Binary)
	}
	return view
}

func binaryView(attachments map[string]*Attachment) map[string]any {
	view := make(map[string]any, len(attachments))
	for name, att := range attachments {
		if att == nil {
			continue
		}
		view[name] = attachmentView(att)
	}
	return view
}

func attachmentView(att *Attachment) map[string]any {
	view := map[string]any{}
	if att.Data != "" {
		view["data"] = att.Data
	}
	if att.MimeType != "" {
		view["mimeType"] = att.MimeType
	}
	if att.FileName != "" {
		view["fileName"] = att.FileName
	}
	if att.FileSize > 0 {
		view["fileSize"] = att.FileSize
	}
	if att.Extension != "" {
		view["fileExtension"] = att.Extension
	}
	return view
}

func nodeView(node NodeInfo) map[string]any {
	view := map[string]any{
		"name": node.Name,
		"type": node.Type,
	}
	if node.TypeVersion != 0 {
		view["typeVersion"] = node.TypeVersion
	}
	if node.Parameters != nil {
		view["parameters"] = node.Parameters
	}
	return view
}

func workflowView(wf WorkflowInfo) map[string]any {
	return map[string]any{
		"id":     wf.ID,
		"name":   wf.Name,
		"active": wf.Active,
	}
}

func prevNodeView(prev PrevNodeInfo) map[string]any {
	return map[string]any{
		"name":        prev.Name,
		"outputIndex": prev.OutputIndex,
		"runIndex":    prev.RunIndex,
	}
}
