package events

import "testing"

func TestFanout_DeliversInOrder(t *testing.T) {
	var got []string
	a := SinkFunc(func(e Event) { got = append(got, "a:"+e.Type) })
	b := SinkFunc(func(e Event) { got = append(got, "b:"+e.Type) })

	sink := Fanout(a, b)
	sink.Publish(Event{Type: TypeMatchFound})

	if len(got) != 2 || got[0] != "a:match_found" || got[1] != "b:match_found" {
		t.Errorf("fanout order = %v; want [a:match_found b:match_found]", got)
	}
}

func TestFanout_SkipsNilSinks(t *testing.T) {
	var count int
	s := SinkFunc(func(Event) { count++ })

	sink := Fanout(nil, s, nil)
	sink.Publish(Event{Type: TypeBlockAdded})

	if count != 1 {
		t.Errorf("publish count = %d; want 1", count)
	}
}

func TestSubject_Routing(t *testing.T) {
	cases := []struct {
		eventType string
		want      string
	}{
		{TypeMatchFound, SubjectMatchFound},
		{TypeSessionEnded, SubjectSessionEnded},
		{TypeReportFiled, SubjectReportFiled},
		{TypeBlockAdded, SubjectBlockAdded},
		{TypeUserRevoked, SubjectAccess},
		{TypeUserAllowed, SubjectAccess},
		{TypeUserAuthorized, SubjectAccess},
		{TypeMessageDropped, SubjectAccess},
	}
	for _, c := range cases {
		if got := Subject(c.eventType); got != c.want {
			t.Errorf("Subject(%s) = %s; want %s", c.eventType, got, c.want)
		}
	}
}

func TestEvent_NowStampsTimestamp(t *testing.T) {
	e := Event{Type: TypeReportFiled}.Now()
	if e.Ts == 0 {
		t.Error("Now should stamp a non-zero timestamp")
	}
}
