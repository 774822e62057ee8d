// Package pipeline runs named components over a dependency graph.
//
// Components are registered with the names of the components they depend on.
// The graph is kept acyclic on every insertion. Execute runs the graph in
// layers: every ready component whose dependencies have all succeeded is
// submitted to a bounded worker pool, the layer is awaited as a whole, and the
// successful leaves are pruned to expose the next layer. A failing component
// never aborts the run; it only starves the components that depend on it.
//
// What a component does is defined by a Logic, which maps a component name to
// a pre-processor, processor and post-processor triple. The same scheduler
// therefore serves any domain that can express its work through a Logic.
package pipeline
