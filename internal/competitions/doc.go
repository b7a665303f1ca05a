// Package competitions lists the club competitions scheduled for a day.
//
// The portal's competition dashboard returns its upcoming competitions
// as an HTML fragment inside a JSON envelope. Dates in the listing carry
// no year, so they are read in the year of the requested day. Rounds of
// a multi-round competition are folded into their parent.
package competitions
