// Package startsheet fetches and parses competition start sheets.
//
// The start sheet lists every entrant of a competition with a compact
// handicap annotation "(HI: x, CH: y, PH: z)". Parsed records are indexed
// by NormalizeName so results tables can be reconciled against them.
package startsheet
