/*
Package deviant holds the application level constants and shared resources
for the deviant service, which segments performance histories, classifies
the shape of their noise and checks the segmentation against the alerts
already raised on each signature.
*/
package deviant

// BuildRevision stores the commit in the git repository at build time and is
// specified with -ldflags at build time.
var BuildRevision = ""

const (
	ShortDateFormat = "2006-01-02T15:04"

	// QueueCapacity bounds the number of pending jobs in the local queue.
	QueueCapacity = 1024
)
