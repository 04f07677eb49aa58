// Package registry maps target types to the strategies that resolve their
// dependencies.
//
// A Registry is an explicit value: the application builds one at startup,
// lets each built-in Module register into it, and hands it to the engine.
// Lookups are by exact type identity. A type that is "derived" from another
// in the build descriptors does not inherit the parent's strategy.
package registry
