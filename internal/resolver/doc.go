/*
Package resolver answers boundary calls from workflow execution snapshots.

A Snapshot is the host-side data graph for one node execution: items,
parameters, node and workflow identity, environment. The Resolver walks
paths through that graph and classifies what it finds: containers come
back as shape descriptors so the sandbox builds lazy proxies, functions
come back as invokable markers, primitives transfer as-is. Environment
reads pass through a glob allowlist.

The Store keeps named snapshots for the data-plane API, loads fixture
directories in any of JSON, YAML, or TOML (optionally gzipped), and can
hot-reload them on file changes.
*/
package resolver
