// Package wazerotrace adapts a wazero runtime to the capture agent's
// host interface.
//
// wazero compiles functions ahead of execution and announces each one
// through its experimental function-listener factory. The adapter turns
// those announcements into code-load events: wasm functions become
// method loads and host-defined functions become dynamic-code records.
// wazero does not expose the generated machine code or its placement,
// so code bytes are empty and addresses are synthetic, stable within a
// session and unique per function.
//
// Metadata queries are answered from the function definitions wazero
// hands to the factory. WebAssembly modules carry no source file or
// line number attributes, so those queries report the information as
// absent rather than failing.
package wazerotrace
