// internal/address/doc.go

/*
Package address provides the identity of a target within a workspace.

An address is a directory relative to the build root plus a target name.
Its canonical string form is `dir:name`, e.g. `src/node/web:web`. Targets
declared at the build root have an empty directory and render as `:name`.

Dependency declarations inside a descriptor may use the shorthand `:name`,
which is resolved against the directory of the declaring descriptor.
*/
package address
