// Package blobsync uploads the files of a local directory to an object-storage
// container under a bounded concurrency budget.
//
// A run stages every regular file directly inside the source directory, then
// stores each one under "<prefix>/<file name>" while at most a configured number
// of store calls are in flight. Progress, informational and error notifications
// are delivered to a notify.Sink as the run proceeds, and a cancel.Token lets
// the caller stop a run cooperatively: uploads already talking to the store are
// allowed to finish, everything else is skipped.
//
// Key features:
//   - Parallel staging of file contents with a stable per-file index
//   - Counting-semaphore dispatch with two cancellation checkpoints per file
//   - Isolated per-file failures that never abort sibling uploads
//   - Pluggable storage through blobtypes.BlobStore (see stores/s3store and stores/azurestore)
//
// Example usage:
//
//	store, err := s3store.New(ctx, accountID, credential, s3store.WithRegion("eu-west-1"))
//	if err != nil {
//	    return err
//	}
//
//	queue := notify.NewQueue()
//	go render(queue.Events())
//
//	result, err := blobsync.New(store).Run(ctx, cfg, cancel.New(), queue)
//	queue.Close()
package blobsync
