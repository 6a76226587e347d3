package eventpubsub

import (
	"fmt"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"
)

var bus EventBus.Bus

func Init() {
	bus = EventBus.New()
}

// Publish is a no-op until Init is called, so library consumers that do not
// care about events pay nothing.
func Publish(publisherName string, topic EventName, event interface{}) {
	if bus == nil {
		return
	}

	log.Debugf("[%v] published to topic %s", publisherName, topic)

	bus.Publish(string(topic), event)
}

func Subscribe(subscriberName string, topic EventName, callbackFn interface{}) error {
	if bus == nil {
		return fmt.Errorf("eventpubsub.Subscribe: bus not initialized")
	}

	if err := bus.SubscribeAsync(string(topic), callbackFn, false); err != nil {
		return fmt.Errorf("eventpubsub.Subscribe: [%v] %w", subscriberName, err)
	}

	log.Infof("[%v] subscribed to topic %s", subscriberName, topic)

	return nil
}

func Unsubscribe(subscriberName string, topic EventName, callbackFn interface{}) {
	if bus == nil {
		return
	}

	if err := bus.Unsubscribe(string(topic), callbackFn); err != nil {
		log.Errorf("[%v] unsubscribe: %v", subscriberName, err)
	}
}
