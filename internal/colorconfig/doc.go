// Package colorconfig loads the named-ink registry that maps every ink a
// separation can carry to its contribution to the four process inks.
//
// # Registry Format
//
// The registry is a JSON document with a "colours" list:
//
//	{
//	  "colours": [
//	    {"name": "C", "cMultiplier": 1, "mMultiplier": 0, "yMultiplier": 0, "kMultiplier": 0,
//	     "aliases": ["cyan"]},
//	    {"name": "Orange", "cMultiplier": 0, "mMultiplier": 0.5, "yMultiplier": 1, "kMultiplier": 0}
//	  ]
//	}
//
// The legacy key "aliasses" is accepted in place of "aliases".
//
// # Naming Rules
//
// Names and aliases are compared case-insensitively and must be unique across
// the whole registry. The letter "V" is reserved for varnish and can never be
// assigned. A duplicate name rejects its whole entry; a duplicate alias is
// dropped on its own while the colour is still registered.
//
// # Reserved Slots
//
// The first four registry slots always hold C, M, Y and K, in that order. Any
// slot the source leaves empty gets an identity definition (multiplier 1 for
// its own plane, 0 elsewhere). A missing or malformed source therefore yields
// the plain CMYK registry plus a warning; loading never fails.
//
// # Thread Safety
//
// A Registry is immutable once loaded and may be shared between goroutines.
package colorconfig
