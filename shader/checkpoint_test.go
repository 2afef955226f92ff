package shader

import "testing"

func TestRegisterCheckpointRoundTrip(t *testing.T) {
	r := NewRegisterFile(2, 2, 4, 1, 4)
	r.In[0] = [4]float32{1, 2, 3, 4}
	r.Out[1] = [4]float32{-1, 0.5, 1e10, -0.25}
	r.Temp[3] = [4]float32{9, 8, 7, 6}
	r.Addr[0] = [4]float32{2, 2, 2, 2}
	r.Pred[0], r.Pred[2] = true, true

	blob := r.Checkpoint()

	restored := NewRegisterFile(0, 0, 0, 0, 0)
	if err := restored.RestoreCheckpoint(blob); err != nil {
		t.Fatal(err)
	}
	if restored.In[0] != r.In[0] || restored.Out[1] != r.Out[1] || restored.Temp[3] != r.Temp[3] || restored.Addr[0] != r.Addr[0] {
		t.Fatal("restored register banks differ from checkpointed state")
	}
	if !restored.Pred[0] || restored.Pred[1] || !restored.Pred[2] {
		t.Fatalf("restored predicates = %v, want [true false true false]", restored.Pred)
	}
}

func TestRestoreRejectsGarbageBlob(t *testing.T) {
	r := NewRegisterFile(1, 1, 1, 1, 1)
	if err := r.RestoreCheckpoint([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error restoring a non-checkpoint blob")
	}
	blob := r.Checkpoint()
	if err := r.RestoreCheckpoint(blob[:len(blob)-2]); err == nil {
		t.Fatal("expected an error restoring a truncated blob")
	}
}
