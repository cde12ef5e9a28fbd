//go:build stm32f4disco

package main

import "device/stm32"

// TIM4 sits on APB1 (42 MHz, prescaler 4), so its kernel clock is 84 MHz.
const tim4ClockHz = 84000000

// compareTimer drives a general purpose timer for core.HwAlarm: the counter
// free-runs and each compare channel raises its own flag.
type compareTimer struct {
	regs     *timRegs
	clockHz  uint32
	width    uint8
	channels int
}

func (t compareTimer) ClockHz() uint32 { return t.clockHz }
func (t compareTimer) Width() uint8    { return t.width }
func (t compareTimer) Channels() int   { return t.channels }

func (t compareTimer) SetPrescaler(psc uint16) {
	t.regs.PSC.Set(uint32(psc))
	// PSC is preloaded
	t.regs.EGR.Set(timEGR_UG)
	t.regs.SR.Set(0)
}

func (t compareTimer) Start() {
	t.regs.ARR.Set(1<<t.width - 1)
	t.regs.CR1.SetBits(timCR1_CEN)
}

func (t compareTimer) Counter() uint32 { return t.regs.CNT.Get() }

func (t compareTimer) SetCompare(ch int, v uint32) { t.regs.CCR[ch].Set(v) }

func (t compareTimer) Compare(ch int) uint32 { return t.regs.CCR[ch].Get() }

func (t compareTimer) EnableCompareIRQ(ch int, enable bool) {
	if enable {
		t.regs.DIER.SetBits(timDIER_CC1IE << ch)
	} else {
		t.regs.DIER.ClearBits(timDIER_CC1IE << ch)
	}
}

func (t compareTimer) CompareFlag(ch int) bool { return t.regs.SR.HasBits(timSR_CC1IF << ch) }

func (t compareTimer) ClearCompareFlag(ch int) { t.regs.SR.Set(^uint32(timSR_CC1IF << ch)) }

func initAlarmTimer() compareTimer {
	stm32.RCC.APB1ENR.SetBits(stm32.RCC_APB1ENR_TIM4EN)
	tim4.CR1.Set(0)
	tim4.DIER.Set(0)
	tim4.CCMR1.Set(0)
	tim4.CCMR2.Set(0)
	return compareTimer{regs: tim4, clockHz: tim4ClockHz, width: 16, channels: 4}
}
