/*
Package proxy implements the lazy data views that sandboxed expressions
read instead of copied workflow data.

Expression code sees ordinary objects: $json.user.name, $binary.file.id,
$input.all(). Underneath, every namespace is a dynamic object rooted at a
path. The first read of a property resolves it across the host boundary;
the result is cached for the rest of the evaluation. Non-primitive results
arrive as shape descriptors and become nested proxies (objects, arrays) or
invokable wrappers (functions), so a chain like $json.a.b.c costs exactly
three boundary calls the first time and zero after.

Local interception keeps incidental JavaScript machinery off the boundary:
symbol lookups read as undefined, toString and valueOf are inert local
functions, __isProxy and __path answer introspection, and enumeration only
reveals advertised or already-cached keys.

A Scope is the per-evaluation set of root globals. Constructing and
publishing a fresh Scope before each run discards all caches from the
previous one, which is what keeps evaluations sharing a pooled runtime
isolated from each other.
*/
package proxy
