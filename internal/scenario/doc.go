// Package scenario runs multi-device annotation scenarios.
//
// A scenario names the texts to load, a set of devices, and a list of steps
// each device performs against a shared in-memory remote. After the steps
// run, the histories of all devices are merged in every listed order and
// replayed; a scenario only passes when every order yields the same
// notebooks and the assertions hold.
//
// # Scenario Format
//
//	name: two_devices
//	description: "Laptop highlights, phone adds a note, both converge"
//	bibles:
//	  - ../bible/testdata/mini.txt
//	devices: [laptop, phone]
//	steps:
//	  - device: laptop
//	    push:
//	      notebook: study
//	      bible_name: MINI
//	      action: {CreateHighlight: {id: h1, name: Creation}}
//	  - device: laptop
//	    commit: true
//	  - device: laptop
//	    sync: true
//	  - device: phone
//	    restart: true
//	assertions:
//	  - type: converged
//	  - type: highlighted
//	    notebook: study
//	    id: h1
//	    chapter: {book: 0, number: 0}
//	    words: [0, 1, 2]
//
// Push payloads use the JSON action layout. Bible paths are relative to the
// scenario file.
//
// # Determinism
//
// Device i reads a clock that starts i hours after testutil.Epoch and
// advances one second per reading, and draws group ids from a sequence
// named after the scenario and device. Running a scenario twice produces
// identical histories.
//
// # Assertion Types
//
//   - converged: every device holds the same history
//   - group_count: number of groups, per device or after the final merge
//   - note_exists / note_absent: a note id in a notebook
//   - category_exists / category_absent: a highlight category id
//   - highlighted: exact set of flat word indices carrying a category
package scenario
