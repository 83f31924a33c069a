package dashboard

// Observer is told about state changes. Callbacks run on the goroutine that
// caused the change, outside the controller lock, and must not block.
type Observer interface {
	OnState(Snapshot)
	OnNotification(Notification)
	OnReportProgress(float64)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	State          func(Snapshot)
	Notification   func(Notification)
	ReportProgress func(float64)
}

func (f ObserverFuncs) OnState(s Snapshot) {
	if f.State != nil {
		f.State(s)
	}
}

func (f ObserverFuncs) OnNotification(n Notification) {
	if f.Notification != nil {
		f.Notification(n)
	}
}

func (f ObserverFuncs) OnReportProgress(p float64) {
	if f.ReportProgress != nil {
		f.ReportProgress(p)
	}
}

// Subscribe registers o and returns a func that unregisters it.
func (c *Controller) Subscribe(o Observer) (unsubscribe func()) {
	c.obsMu.Lock()
	id := c.nextObs
	c.nextObs++
	c.observers[id] = o
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Controller) observerList() []Observer {
	c.obsMu.Lock()
	defer c.obsMu.Unlock()
	out := make([]Observer, 0, len(c.observers))
	for _, o := range c.observers {
		out = append(out, o)
	}
	return out
}

func (c *Controller) publishState() {
	obs := c.observerList()
	if len(obs) == 0 {
		return
	}
	s := c.Snapshot()
	for _, o := range obs {
		o.OnState(s)
	}
}
