// Package scene holds the animation template catalog and turns VideoContent
// into a manim scene script.
//
// A workflow selects a template from the content shape (Select), fills its
// parameters from the content and requirements (PrepareParameters), checks them
// against the template definition (Validate) and finally renders a Python
// source file defining a RenderScene class (Build). The render supervisor
// writes that source to disk and hands it to manim.
package scene
