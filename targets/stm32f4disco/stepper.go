//go:build stm32f4disco

package main

import (
	"device/stm32"
	"unsafe"

	"motionstation/core"
)

// TIM1 sits on APB2; with the APB2 prescaler at 2 its kernel clock is
// twice PCLK2.
const tim1ClockHz = 168000000

// TIM1_CH1 requests are served by DMA2 stream 1, channel 6.
const (
	phaseStream  = 1
	phaseChannel = 6
)

// advancedTimer drives TIM1 for core.BStepper.
type advancedTimer struct {
	regs *timRegs
}

func (t advancedTimer) ClockHz() uint32 { return tim1ClockHz }

func (t advancedTimer) SetPrescaler(psc uint16) { t.regs.PSC.Set(uint32(psc)) }

func (t advancedTimer) SetAutoReload(arr uint16) { t.regs.ARR.Set(uint32(arr)) }

func (t advancedTimer) SetRepetitionCounter(rcr uint8) { t.regs.RCR.Set(uint32(rcr)) }

// GenerateUpdate reloads the preloaded registers. URS is set so UG does not
// raise UIF.
func (t advancedTimer) GenerateUpdate() { t.regs.EGR.Set(timEGR_UG) }

func (t advancedTimer) SetOnePulse(single bool) {
	if single {
		t.regs.CR1.SetBits(timCR1_OPM)
	} else {
		t.regs.CR1.ClearBits(timCR1_OPM)
	}
}

func (t advancedTimer) UpdatePending() bool { return t.regs.SR.HasBits(timSR_UIF) }

// ClearUpdate writes zero to UIF; the status bits are rc_w0.
func (t advancedTimer) ClearUpdate() { t.regs.SR.Set(^uint32(timSR_UIF)) }

func (t advancedTimer) EnableUpdateIRQ(enable bool) {
	if enable {
		t.regs.DIER.SetBits(timDIER_UIE)
	} else {
		t.regs.DIER.ClearBits(timDIER_UIE)
	}
}

func (t advancedTimer) SetCompare(ccr uint16) { t.regs.CCR[0].Set(uint32(ccr)) }

func (t advancedTimer) EnableCompareDMA(enable bool) {
	if enable {
		t.regs.DIER.SetBits(timDIER_CC1DE)
	} else {
		t.regs.DIER.ClearBits(timDIER_CC1DE)
	}
}

func (t advancedTimer) Start() { t.regs.CR1.SetBits(timCR1_CEN) }

func (t advancedTimer) Running() bool { return t.regs.CR1.HasBits(timCR1_CEN) }

// phaseStreamDMA is a circular word stream into a port's BSRR.
type phaseStreamDMA struct {
	regs   *dmaRegs
	stream int
}

func (d phaseStreamDMA) s() *dmaStream { return &d.regs.Stream[d.stream] }

func (d phaseStreamDMA) Disable() {
	s := d.s()
	s.CR.ClearBits(dmaCR_EN)
	for s.CR.HasBits(dmaCR_EN) {
	}
}

func (d phaseStreamDMA) Enabled() bool { return d.s().CR.HasBits(dmaCR_EN) }

func (d phaseStreamDMA) ClearFlags() {
	d.regs.LIFCR.Set(dmaStreamFlags << dmaStreamFlagPos)
}

// Load points the stream at src. The table must stay alive while the
// stream runs; the translator owns it for the program lifetime.
func (d phaseStreamDMA) Load(src []uint32) {
	s := d.s()
	s.M0AR.Set(uint32(uintptr(unsafe.Pointer(&src[0]))))
	s.NDTR.Set(uint32(len(src)))
}

func (d phaseStreamDMA) Enable() { d.s().CR.SetBits(dmaCR_EN) }

// bsrrPort writes a port's set/reset register.
type bsrrPort struct {
	regs *gpioRegs
}

func (p bsrrPort) SetReset(mask uint32) { p.regs.BSRR.Set(mask) }

// initStepperHardware clocks TIM1 and DMA2 and puts both in the mode
// BStepper expects: compare 1 raising a DMA request each period, preloaded
// auto-reload with CCR1 written directly, and stream 1 copying words from memory into GPIOE BSRR.
func initStepperHardware() core.StepperHardware {
	stm32.RCC.APB2ENR.SetBits(stm32.RCC_APB2ENR_TIM1EN)
	stm32.RCC.AHB1ENR.SetBits(stm32.RCC_AHB1ENR_DMA2EN | stm32.RCC_AHB1ENR_GPIOEEN)

	tim1.CR1.Set(timCR1_ARPE | timCR1_URS)
	// OC1 frozen, CCR1 not preloaded
	tim1.CCMR1.Set(0)
	tim1.CCR[0].Set(0)
	tim1.DIER.Set(0)
	tim1.SR.Set(0)

	dma := phaseStreamDMA{regs: dma2, stream: phaseStream}
	dma.Disable()
	dma.ClearFlags()
	s := dma.s()
	s.PAR.Set(uint32(uintptr(unsafe.Pointer(&gpioe.BSRR))))
	s.FCR.Set(dmaFCR_DMDIS | dmaFCR_FTH_FULL)
	s.CR.Set(phaseChannel<<dmaCR_CHSEL_Pos | dmaCR_PL_HIGH | dmaCR_MSIZE_32 |
		dmaCR_PSIZE_32 | dmaCR_MINC | dmaCR_CIRC | dmaCR_DIR_M2P)

	return core.StepperHardware{
		Timer: advancedTimer{regs: tim1},
		DMA:   dma,
		Port:  bsrrPort{regs: gpioe},
		IRQ:   stepperIRQ,
	}
}
