/*
Package boundary defines the contract between sandboxed expression code and
the host that owns the workflow data.

Three synchronous primitives cross the boundary:

  - resolve value at path
  - resolve array element at path
  - invoke function at path

Everything else (proxies, caching, namespaces) is built on top of these.
Resolvers answer each primitive with either a transferable primitive, nil
for an explicit null, the Undefined marker for an absent value, or a
*Descriptor announcing a non-primitive shape the caller should wrap lazily.

A Registry carries the wired primitives for a single evaluation. The wire
types in this package serialize the same contract over HTTP for hosts that
run out of process.
*/
package boundary
