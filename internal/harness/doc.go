// Package harness runs YAML scenarios against the wish submission protocol.
//
// A scenario names an invitation, seeds optional existing wishes, then runs
// a flow of actions against a fresh in-memory sqlite store:
//
//	name: duplicate_tab
//	description: A second tab cannot overwrite the first submission
//	invitation: wed_123
//	flow:
//	  - invoke: Wish.submit
//	    args: {guest: "Budi Santoso", message: "Selamat!"}
//	    expect: {case: created}
//	  - invoke: Wish.submit
//	    args: {guest: "budi santoso", message: "Pesan kedua"}
//	    expect:
//	      case: already_posted
//	      result: {message: "Selamat!"}
//	assertions:
//	  - type: record_count
//	    count: 1
//
// Supported actions:
//
//	Wish.submit            {guest, attendance, message}
//	Wish.submitAnonymous   {name, attendance, message}
//	Wish.find              {guest}
//	Wish.list              {dedupe}
//	Guest.nameKey          {name}
//	Photos.pick            {items, seed, count}
//
// A flow step with concurrent: N runs N identical Wish.submit calls in
// parallel and completes with case "burst" and per-outcome counts.
//
// Every step appends an invocation and a completion to the trace. Clock and
// anonymous IDs are deterministic, so traces can be compared byte-for-byte
// against golden files.
package harness
