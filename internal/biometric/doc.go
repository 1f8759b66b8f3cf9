// Package biometric gates access behind the platform's biometric prompt.
//
// On darwin with cgo enabled the prompt is Touch ID through the
// LocalAuthentication framework. On windows it is a system confirmation
// dialog. Every other platform reports the capability as unavailable.
//
// Registration stores an installation-wide secret in a Vault; verification
// requires that secret to still be present and unchanged after a
// successful prompt.
package biometric
