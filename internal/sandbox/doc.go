/*
Package sandbox provides hardened JavaScript runtimes for workflow
expression evaluation.

Expressions are untrusted: they run with no module system, no process
access, inert timers, a bounded call stack, and an interrupt-based
execution deadline. Data reaches them only through the lazy proxies in the
proxy subpackage, wired to a boundary registry per evaluation.

Runtimes are expensive to build and cheap to reuse, so the Pool keeps a
fixed set and resets each runtime between borrowers. Isolation is layered:
a fresh proxy scope per evaluation, then a full VM replacement on release.
*/
package sandbox
