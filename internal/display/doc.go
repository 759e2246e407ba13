// Package display formats user-facing warning blocks for the qasuite CLI.
//
// A warning renders as a yellow title line followed by optional indented
// detail lines:
//
//	display.MissingDependencies([]string{"bandit", "safety"}).Display(os.Stdout)
//
// Colors come from fatih/color and are dropped automatically when the output
// is not a terminal or NO_COLOR is set.
package display
