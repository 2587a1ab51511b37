// Package core provides the business logic for match analysis applications.
//
// It sits between the HTTP layer and the two side effects of a submission,
// building the export and sending the email, and knows nothing about
// requests or JSON.
//
// # Submission Flow
//
// [Service.Submit] runs the steps in a fixed order:
//
//  1. Check the roster size; a short roster stops here with no side effects
//  2. Wait for a slot when a [SubmitLimiter] is configured
//  3. Build the export with the configured [export.Builder]
//  4. Send one email with the export attached to the operations inbox
//  5. Release the export (temp files are removed even if the send failed)
//
// # Error Handling
//
// Errors returned by Submit keep their cause for logging. [Classify] maps
// them to an HTTP status, a support code and a safe client message:
//
//   - VAL001: request validation
//   - APP001: roster too small
//   - SUB001: submission slots exhausted
//   - CFG001, MAIL001: email configuration and delivery
//   - EXP001: export generation
package core
