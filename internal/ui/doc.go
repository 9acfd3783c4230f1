// Package ui provides terminal UI components for cloudctl's CLI output.
//
// The package includes spinners, tables, pickers, prompts and styled status
// lines built on Lip Gloss, Bubbles, Bubble Tea and Huh.
//
// # Components Overview
//
//	Spinner  - Animated status indicator for long-running operations
//	Table    - Static tables for key, application and environment listings
//	Picker   - Interactive single choice using a Bubbles list
//	Prompter - Huh inputs, passwords, confirmations, multi-selects and notes
//	Status   - One-line success, warning and failure messages
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility. ApplyColorMode
// selects the termenv profile from the output.color setting; "never" and
// piped output in "auto" mode render without escape codes.
//
// # Interactivity
//
// Prompts and pickers need a terminal on both ends. Interactive reports that,
// and a Prompter built for non-interactive use answers confirmations with
// their default and refuses free-form input.
package ui
