// Package checkpoint persists the two artifacts of a batch run.
//
// The progress record (fanList.json) lists every fan club with the id of the
// last post downloaded for it; the next run resumes after that cursor. The
// completion log (fantia_complete.json) summarises what one run downloaded and
// is consumed by external monitoring, so its top-level keys are fixed:
//
//	{
//	  "download-compleate": [{"fanclub_id": "100", "fanclub_name": "Alice", "count": 2}],
//	  "dayTime": "2026/10/18 09:30",
//	  "allcount": 2
//	}
//
// Both files are written through a temporary file and a rename. Older fan club
// lists stored each entry as a "fanclub_id:last_post_id:fanclub_name" string;
// those are still read, and rewritten in the structured form on the next save.
package checkpoint
